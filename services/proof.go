package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strconv"
	"strings"

	"cashier/models"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"gorm.io/gorm"
)

// ProofStore persists proof images and returns a retrievable reference.
type ProofStore interface {
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, name string) error
}

type ProofFile struct {
	Filename string
	Data     []byte
}

var proofTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

type Proofs struct {
	db       *gorm.DB
	store    ProofStore
	maxBytes int64
	maxDim   int
	log      *zap.Logger
}

func NewProofs(db *gorm.DB, store ProofStore, maxBytes int64, maxDim int, log *zap.Logger) *Proofs {
	return &Proofs{db: db, store: store, maxBytes: maxBytes, maxDim: maxDim, log: log}
}

func (p *Proofs) MaxBytes() int64 { return p.maxBytes }

// Attach stores an image as evidence for a pending request owned by user.
func (p *Proofs) Attach(ctx context.Context, user User, requestID uint, file ProofFile) (string, error) {
	db := p.db.WithContext(ctx)

	var req models.PaymentRequest
	err := db.Select("id", "reference", "profile_id", "status").First(&req, requestID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", notFound("REQUEST_NOT_FOUND", "payment request not found")
	}
	if err != nil {
		return "", dependency("load payment request", err)
	}
	if req.ProfileID != user.ProfileID() {
		return "", forbidden("NOT_REQUEST_OWNER", "payment request belongs to another profile")
	}
	if err := requirePending(&req); err != nil {
		return "", err
	}

	data, contentType, err := p.prepare(file.Data)
	if err != nil {
		return "", err
	}

	name := req.Reference + "-" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12] + proofTypes[contentType]
	ref, err := p.store.Put(ctx, name, contentType, data)
	if err != nil {
		return "", dependency("store proof", err)
	}

	res := db.Model(&models.PaymentRequest{}).
		Where("id = ? AND status = ?", req.ID, models.StatusPending).
		Update("proof_ref", ref)
	if res.Error != nil {
		p.discard(ctx, name)
		return "", dependency("update proof reference", res.Error)
	}
	if res.RowsAffected == 0 {
		p.discard(ctx, name)
		return "", invalidState("REQUEST_NOT_PENDING", "payment request was settled before the proof was attached")
	}

	p.log.Info("proof attached",
		zap.Uint("request_id", req.ID),
		zap.String("proof_ref", ref),
		zap.String("content_type", contentType),
		zap.Int("bytes", len(data)),
	)
	return ref, nil
}

// discard removes a stored proof that no request points to.
func (p *Proofs) discard(ctx context.Context, name string) {
	if err := p.store.Delete(context.WithoutCancel(ctx), name); err != nil {
		p.log.Warn("orphaned proof not removed", zap.String("name", name), zap.Error(err))
	}
}

// prepare validates the upload by content and downsizes oversized images.
func (p *Proofs) prepare(data []byte) ([]byte, string, error) {
	if len(data) == 0 {
		return nil, "", invalidFile("FILE_EMPTY", "proof file is empty")
	}
	if p.maxBytes > 0 && int64(len(data)) > p.maxBytes {
		return nil, "", invalidFile("FILE_TOO_LARGE", "proof file exceeds "+strconv.FormatInt(p.maxBytes, 10)+" bytes")
	}

	mt := mimetype.Detect(data)
	contentType := strings.Split(mt.String(), ";")[0]
	if _, ok := proofTypes[contentType]; !ok {
		return nil, "", invalidFile("FILE_NOT_IMAGE", "proof must be a jpeg, png, webp or gif image, got "+contentType)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", invalidFile("FILE_CORRUPT", "proof image cannot be decoded")
	}
	if p.maxDim <= 0 || (cfg.Width <= p.maxDim && cfg.Height <= p.maxDim) {
		return data, contentType, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", invalidFile("FILE_CORRUPT", "proof image cannot be decoded")
	}
	w, h := fit(cfg.Width, cfg.Height, p.maxDim)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85}); err != nil {
		return nil, "", dependency("encode proof", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}

// fit scales w x h down so the longer side equals limit.
func fit(w, h, limit int) (int, int) {
	if w >= h {
		nh := h * limit / w
		if nh < 1 {
			nh = 1
		}
		return limit, nh
	}
	nw := w * limit / h
	if nw < 1 {
		nw = 1
	}
	return nw, limit
}
