package services

import (
	"context"

	"cashier/models"

	"gorm.io/gorm"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type Page struct {
	Page     int
	PageSize int
}

func (p Page) normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

type PageResult[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// paginate counts and fetches one page of q newest first. q must be a fresh
// session so Count and Find do not share statement state. Preloads apply to
// the fetch only.
func paginate[T any](q *gorm.DB, page Page, preloads ...string) (PageResult[T], error) {
	page = page.normalize()
	out := PageResult[T]{Items: []T{}, Page: page.Page, PageSize: page.PageSize}

	if err := q.Count(&out.Total).Error; err != nil {
		return out, dependency("count rows", err)
	}
	out.TotalPages = int((out.Total + int64(page.PageSize) - 1) / int64(page.PageSize))
	if out.Total == 0 {
		return out, nil
	}

	fetch := q
	for _, p := range preloads {
		fetch = fetch.Preload(p)
	}
	err := fetch.Order("created_at DESC").Order("id DESC").
		Offset((page.Page - 1) * page.PageSize).
		Limit(page.PageSize).
		Find(&out.Items).Error
	if err != nil {
		return out, dependency("list rows", err)
	}
	return out, nil
}

type RequestFilter struct {
	OwnerID *uint
	Kind    models.RequestKind
	Status  models.RequestStatus
}

func (f RequestFilter) validate() error {
	if f.Kind != "" && !f.Kind.Valid() {
		return validation("INVALID_KIND", "unknown request kind "+string(f.Kind))
	}
	if f.Status != "" && !f.Status.Valid() {
		return validation("INVALID_STATUS", "unknown request status "+string(f.Status))
	}
	return nil
}

// RequestView is a payment request with owner and reviewer display data for
// admin listings.
type RequestView struct {
	models.PaymentRequest
	Owner    *models.ProfileSummary `json:"owner,omitempty"`
	Reviewer *models.ProfileSummary `json:"reviewer,omitempty"`
}

type TransactionFilter struct {
	OwnerID *uint
	Kind    models.TransactionKind
}

type AdminLogFilter struct {
	AdminID *uint
	Action  string
}

type Listing struct {
	db *gorm.DB
}

func NewListing(db *gorm.DB) *Listing {
	return &Listing{db: db}
}

func (l *Listing) requestQuery(ctx context.Context, f RequestFilter) *gorm.DB {
	q := l.db.WithContext(ctx).Model(&models.PaymentRequest{})
	if f.OwnerID != nil {
		q = q.Where("profile_id = ?", *f.OwnerID)
	}
	if f.Kind != "" {
		q = q.Where("kind = ?", f.Kind)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	return q.Session(&gorm.Session{})
}

// UserRequests lists the caller's own requests. Any owner in f is replaced by
// the caller.
func (l *Listing) UserRequests(ctx context.Context, user User, f RequestFilter, page Page) (PageResult[models.PaymentRequest], error) {
	if err := f.validate(); err != nil {
		return PageResult[models.PaymentRequest]{}, err
	}
	owner := user.ProfileID()
	f.OwnerID = &owner
	return paginate[models.PaymentRequest](l.requestQuery(ctx, f), page)
}

func (l *Listing) AdminRequests(ctx context.Context, _ Admin, f RequestFilter, page Page) (PageResult[RequestView], error) {
	if err := f.validate(); err != nil {
		return PageResult[RequestView]{}, err
	}
	rows, err := paginate[models.PaymentRequest](l.requestQuery(ctx, f), page, "Owner", "Reviewer")
	if err != nil {
		return PageResult[RequestView]{}, err
	}

	out := PageResult[RequestView]{
		Items:      make([]RequestView, 0, len(rows.Items)),
		Total:      rows.Total,
		Page:       rows.Page,
		PageSize:   rows.PageSize,
		TotalPages: rows.TotalPages,
	}
	for _, r := range rows.Items {
		out.Items = append(out.Items, RequestView{
			PaymentRequest: r,
			Owner:          r.Owner.Summary(),
			Reviewer:       r.Reviewer.Summary(),
		})
	}
	return out, nil
}

func (l *Listing) transactionQuery(ctx context.Context, f TransactionFilter) (*gorm.DB, error) {
	if f.Kind != "" && !f.Kind.Valid() {
		return nil, validation("INVALID_KIND", "unknown transaction kind "+string(f.Kind))
	}
	q := l.db.WithContext(ctx).Model(&models.Transaction{})
	if f.OwnerID != nil {
		q = q.Where("profile_id = ?", *f.OwnerID)
	}
	if f.Kind != "" {
		q = q.Where("kind = ?", f.Kind)
	}
	return q.Session(&gorm.Session{}), nil
}

func (l *Listing) UserTransactions(ctx context.Context, user User, f TransactionFilter, page Page) (PageResult[models.Transaction], error) {
	owner := user.ProfileID()
	f.OwnerID = &owner
	q, err := l.transactionQuery(ctx, f)
	if err != nil {
		return PageResult[models.Transaction]{}, err
	}
	return paginate[models.Transaction](q, page)
}

func (l *Listing) AdminTransactions(ctx context.Context, _ Admin, f TransactionFilter, page Page) (PageResult[models.Transaction], error) {
	q, err := l.transactionQuery(ctx, f)
	if err != nil {
		return PageResult[models.Transaction]{}, err
	}
	return paginate[models.Transaction](q, page)
}

func (l *Listing) AdminLogs(ctx context.Context, _ Admin, f AdminLogFilter, page Page) (PageResult[models.AdminLog], error) {
	q := l.db.WithContext(ctx).Model(&models.AdminLog{})
	if f.AdminID != nil {
		q = q.Where("admin_id = ?", *f.AdminID)
	}
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	return paginate[models.AdminLog](q.Session(&gorm.Session{}), page)
}
