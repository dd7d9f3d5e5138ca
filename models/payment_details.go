package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

type PaymentMethod string

const (
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodEWallet      PaymentMethod = "e_wallet"
	MethodQRIS         PaymentMethod = "qris"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodBankTransfer, MethodEWallet, MethodQRIS:
		return true
	}
	return false
}

// Withdrawable reports whether funds can be paid out through m.
func (m PaymentMethod) Withdrawable() bool {
	return m == MethodBankTransfer || m == MethodEWallet
}

var (
	ErrUnknownMethod  = errors.New("unknown payment method")
	ErrDetailsInvalid = errors.New("invalid payment details")

	accountNumberRe = regexp.MustCompile(`^[0-9]{5,30}$`)
	phoneRe         = regexp.MustCompile(`^\+?[0-9]{8,15}$`)

	eWalletProviders = map[string]bool{"dana": true, "ovo": true, "gopay": true, "shopeepay": true}
)

// PaymentDetails is the method-specific part of a payment request. The
// concrete type always matches Method().
type PaymentDetails interface {
	Method() PaymentMethod
	Validate() error
}

type BankTransfer struct {
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	AccountHolder string `json:"account_holder"`
}

func (BankTransfer) Method() PaymentMethod { return MethodBankTransfer }

func (b BankTransfer) Validate() error {
	if strings.TrimSpace(b.BankName) == "" {
		return fmt.Errorf("%w: bank_name is required", ErrDetailsInvalid)
	}
	if !accountNumberRe.MatchString(b.AccountNumber) {
		return fmt.Errorf("%w: account_number must be 5-30 digits", ErrDetailsInvalid)
	}
	if strings.TrimSpace(b.AccountHolder) == "" {
		return fmt.Errorf("%w: account_holder is required", ErrDetailsInvalid)
	}
	return nil
}

type EWallet struct {
	Provider      string `json:"provider"`
	PhoneNumber   string `json:"phone_number"`
	AccountHolder string `json:"account_holder"`
}

func (EWallet) Method() PaymentMethod { return MethodEWallet }

func (e EWallet) Validate() error {
	if !eWalletProviders[strings.ToLower(e.Provider)] {
		return fmt.Errorf("%w: unsupported e-wallet provider %q", ErrDetailsInvalid, e.Provider)
	}
	if !phoneRe.MatchString(e.PhoneNumber) {
		return fmt.Errorf("%w: phone_number must be 8-15 digits", ErrDetailsInvalid)
	}
	if strings.TrimSpace(e.AccountHolder) == "" {
		return fmt.Errorf("%w: account_holder is required", ErrDetailsInvalid)
	}
	return nil
}

type QRIS struct{}

func (QRIS) Method() PaymentMethod { return MethodQRIS }
func (QRIS) Validate() error       { return nil }

// DecodeDetails builds the variant for method from its JSON payload. An empty
// payload is only accepted for methods without required fields.
func DecodeDetails(method PaymentMethod, raw []byte) (PaymentDetails, error) {
	raw = bytes.TrimSpace(raw)
	empty := len(raw) == 0 || bytes.Equal(raw, []byte("null"))

	var d PaymentDetails
	var err error
	switch method {
	case MethodBankTransfer:
		var v BankTransfer
		if !empty {
			err = strictUnmarshal(raw, &v)
		}
		d = v
	case MethodEWallet:
		var v EWallet
		if !empty {
			err = strictUnmarshal(raw, &v)
		}
		v.Provider = strings.ToLower(v.Provider)
		d = v
	case MethodQRIS:
		d = QRIS{}
	default:
		return nil, ErrUnknownMethod
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDetailsInvalid, err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func strictUnmarshal(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// Details is the column wrapper persisting a PaymentDetails variant as JSON
// tagged with its method.
type Details struct {
	PaymentDetails
}

type detailsEnvelope struct {
	Method PaymentMethod   `json:"method"`
	Data   json.RawMessage `json:"data"`
}

func (Details) GormDataType() string { return "json" }

func (d Details) Value() (driver.Value, error) {
	if d.PaymentDetails == nil {
		return nil, nil
	}
	data, err := json.Marshal(d.PaymentDetails)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(detailsEnvelope{Method: d.PaymentDetails.Method(), Data: data})
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (d *Details) Scan(value any) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		d.PaymentDetails = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported details column type %T", value)
	}

	var env detailsEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return err
	}
	switch env.Method {
	case MethodBankTransfer:
		var v BankTransfer
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return err
		}
		d.PaymentDetails = v
	case MethodEWallet:
		var v EWallet
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return err
		}
		d.PaymentDetails = v
	case MethodQRIS:
		d.PaymentDetails = QRIS{}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMethod, env.Method)
	}
	return nil
}

func (d Details) MarshalJSON() ([]byte, error) {
	if d.PaymentDetails == nil {
		return []byte("null"), nil
	}
	return json.Marshal(d.PaymentDetails)
}
