package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"cashier/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestAttachProof(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedProfile(t, "budi", 0, false)
	req := env.pendingDeposit(t, owner, 20000)

	ref, err := env.app.Proofs.Attach(context.Background(), env.user(t, owner), req.ID, ProofFile{Filename: "receipt.txt", Data: pngBytes(t, 10, 10)})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(ref, "/proofs/"+req.Reference+"-"))
	assert.True(t, strings.HasSuffix(ref, ".png"))

	var stored models.PaymentRequest
	require.NoError(t, env.db.First(&stored, req.ID).Error)
	require.NotNil(t, stored.ProofRef)
	assert.Equal(t, ref, *stored.ProofRef)
}

func TestAttachProofDownscalesLargeImages(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedProfile(t, "budi", 0, false)
	req := env.pendingDeposit(t, owner, 20000)

	ref, err := env.app.Proofs.Attach(context.Background(), env.user(t, owner), req.ID, ProofFile{Data: pngBytes(t, 200, 100)})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(ref, ".jpg"))

	name := strings.TrimPrefix(ref, "/proofs/")
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(env.store.objects[name]))
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Width)
	assert.Equal(t, 32, cfg.Height)
}

func TestAttachProofSettledDuringUploadRemovesFile(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedProfile(t, "budi", 0, false)
	admin := env.admin(t, env.seedProfile(t, "admin", 0, true))
	req := env.pendingDeposit(t, owner, 20000)

	env.store.afterPut = func() {
		_, err := env.app.Review.Reject(context.Background(), admin, req.ID, "expired")
		require.NoError(t, err)
	}

	_, err := env.app.Proofs.Attach(context.Background(), env.user(t, owner), req.ID, ProofFile{Data: pngBytes(t, 10, 10)})
	requireKind(t, err, KindInvalidState)
	assert.Zero(t, env.store.len())

	var stored models.PaymentRequest
	require.NoError(t, env.db.First(&stored, req.ID).Error)
	assert.Equal(t, models.StatusRejected, stored.Status)
	assert.Nil(t, stored.ProofRef)
}

func TestAttachProofRefusals(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedProfile(t, "budi", 0, false)
	other := env.seedProfile(t, "sari", 0, false)
	admin := env.admin(t, env.seedProfile(t, "admin", 0, true))
	ctx := context.Background()

	pending := env.pendingDeposit(t, owner, 20000)
	settled := env.pendingDeposit(t, owner, 20000)
	_, err := env.app.Review.Reject(ctx, admin, settled.ID, "")
	require.NoError(t, err)

	valid := pngBytes(t, 8, 8)
	corrupt := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0xff}, 64)...)

	tests := []struct {
		name string
		user User
		id   uint
		data []byte
		kind Kind
		code string
	}{
		{"unknown request", env.user(t, owner), 999, valid, KindNotFound, "REQUEST_NOT_FOUND"},
		{"not the owner", env.user(t, other), pending.ID, valid, KindForbidden, "NOT_REQUEST_OWNER"},
		{"already settled", env.user(t, owner), settled.ID, valid, KindInvalidState, "REQUEST_NOT_PENDING"},
		{"empty file", env.user(t, owner), pending.ID, nil, KindInvalidFile, "FILE_EMPTY"},
		{"too large", env.user(t, owner), pending.ID, bytes.Repeat([]byte{0x89}, 1<<20+1), KindInvalidFile, "FILE_TOO_LARGE"},
		{"not an image", env.user(t, owner), pending.ID, []byte("%PDF-1.4 transfer receipt"), KindInvalidFile, "FILE_NOT_IMAGE"},
		{"corrupt image", env.user(t, owner), pending.ID, corrupt, KindInvalidFile, "FILE_CORRUPT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.app.Proofs.Attach(ctx, tt.user, tt.id, ProofFile{Data: tt.data})
			requireKind(t, err, tt.kind)
			assert.ErrorIs(t, err, &Error{Kind: tt.kind, Code: tt.code})
		})
	}
	assert.Empty(t, env.store.objects)
}

func TestAttachProofStoreFailure(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedProfile(t, "budi", 0, false)
	req := env.pendingDeposit(t, owner, 20000)
	env.store.err = errors.New("disk full")

	_, err := env.app.Proofs.Attach(context.Background(), env.user(t, owner), req.ID, ProofFile{Data: pngBytes(t, 4, 4)})
	requireKind(t, err, KindDependency)
}

func TestFit(t *testing.T) {
	w, h := fit(4000, 3000, 1600)
	assert.Equal(t, 1600, w)
	assert.Equal(t, 1200, h)

	w, h = fit(10, 5000, 1000)
	assert.Equal(t, 2, w)
	assert.Equal(t, 1000, h)
}
