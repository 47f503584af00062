package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Ecaloota/open-csip-aus-listing-api/internal/apperrors"
	"github.com/Ecaloota/open-csip-aus-listing-api/internal/telemetry"
)

// Gate check results, used as the metric label.
const (
	ResultValidated = "validated"
	ResultRejected  = "rejected"
	ResultError     = "error"
)

// KeyLister supplies the stored access key hashes.
type KeyLister interface {
	KeyHashes(ctx context.Context) ([]string, error)
}

// Gate validates presented credentials against every stored key hash.
type Gate struct {
	keys   KeyLister
	static []string
}

// NewGate builds a gate over keys. Extra hashes (typically the configured bootstrap key) are
// checked after the stored ones; empty strings are ignored.
func NewGate(keys KeyLister, extra ...string) *Gate {
	g := &Gate{keys: keys}
	for _, h := range extra {
		if h != "" {
			g.static = append(g.static, h)
		}
	}
	return g
}

// Check returns nil when credential matches any known hash and apperrors.ErrUnauthorized when
// it matches none. The empty credential never matches. Any other error means the stored keys
// could not be read.
func (g *Gate) Check(ctx context.Context, credential string) error {
	if credential == "" {
		telemetry.AccessGateChecksTotal.WithLabelValues(ResultRejected).Inc()
		return apperrors.ErrUnauthorized
	}

	var hashes []string
	if g.keys != nil {
		stored, err := g.keys.KeyHashes(ctx)
		if err != nil {
			telemetry.AccessGateChecksTotal.WithLabelValues(ResultError).Inc()
			return fmt.Errorf("failed to load access keys: %w", err)
		}
		hashes = stored
	}
	hashes = append(hashes, g.static...)

	// Linear scan: the key set is small and each comparison is already constant time.
	for _, hash := range hashes {
		if ValidateAPIKey(credential, hash) {
			telemetry.AccessGateChecksTotal.WithLabelValues(ResultValidated).Inc()
			return nil
		}
	}

	telemetry.AccessGateChecksTotal.WithLabelValues(ResultRejected).Inc()
	slog.DebugContext(ctx, "access gate rejected credential", "keys_checked", len(hashes))
	return apperrors.ErrUnauthorized
}
