package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/portier-acs/portier/server/internal/portier/store"
	"github.com/portier-acs/portier/server/internal/portier/types"
)

var ErrInvalidScannerUID = errors.New("scanner uid is required")

// ScannerDirectory resolves hardware scanner uids to rows and tracks when
// each scanner was last heard from.
type ScannerDirectory struct {
	scanners store.ScannerStore
}

func NewScannerDirectory(scanners store.ScannerStore) *ScannerDirectory {
	return &ScannerDirectory{scanners: scanners}
}

// Resolve looks a scanner up by hardware uid.  Unknown uids return
// ErrNotFound — unlike tags, scanners are never auto-registered; a message
// from an uncommissioned scanner is dropped by the pipeline.
func (d *ScannerDirectory) Resolve(ctx context.Context, uid string) (types.Scanner, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return types.Scanner{}, ErrInvalidScannerUID
	}
	sc, err := d.scanners.GetByUID(ctx, uid)
	if errors.Is(err, store.ErrNotFound) {
		return types.Scanner{}, ErrNotFound
	}
	return sc, err
}

// NoteSeen records that the scanner produced traffic.  Best-effort.
func (d *ScannerDirectory) NoteSeen(ctx context.Context, id int64) error {
	return d.scanners.NoteSeen(ctx, id, time.Now().UTC())
}

// Register commissions a new scanner.  Administrator-only; the caller
// check lives in the HTTP layer.
func (d *ScannerDirectory) Register(ctx context.Context, uid, description string) (types.Scanner, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return types.Scanner{}, ErrInvalidScannerUID
	}
	sc := types.Scanner{UID: uid, Description: strings.TrimSpace(description)}
	id, err := d.scanners.Create(ctx, sc)
	if errors.Is(err, store.ErrConflict) {
		return types.Scanner{}, ErrConflict
	}
	if err != nil {
		return types.Scanner{}, err
	}
	sc.ID = id
	return sc, nil
}

func (d *ScannerDirectory) List(ctx context.Context) ([]types.Scanner, error) {
	return d.scanners.List(ctx)
}
