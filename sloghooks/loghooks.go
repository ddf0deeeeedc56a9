package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/synckv"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	WriteOKEvery   uint64
	ReconcileEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	writeOKCtr   atomic.Uint64
	reconcileCtr atomic.Uint64
}

var _ synckv.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) LoadCompleted(name string, fromStore, seeded int, took time.Duration) {
	if h.l == nil {
		return
	}
	h.l.Info("synckv.load_completed",
		"name", name,
		"from_store", fromStore,
		"seeded", seeded,
		"took", took)
}

func (h *Hooks) LoadFailed(name string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("synckv.load_failed",
		"name", name,
		"err", err)
}

// WriteDone always logs failures; successes are sampled at debug level.
func (h *Hooks) WriteDone(op, key string, err error, took time.Duration) {
	if h.l == nil {
		return
	}
	if err != nil {
		h.l.Warn("synckv.write_failed",
			"op", op,
			"key", h.redact(key),
			"err", err)
		return
	}
	if !sample(h.opts.WriteOKEvery, &h.writeOKCtr) {
		return
	}
	h.l.Debug("synckv.write_ok",
		"op", op,
		"key", h.redact(key),
		"took", took)
}

func (h *Hooks) Reconciled(key, outcome string) {
	if h.l == nil || !sample(h.opts.ReconcileEvery, &h.reconcileCtr) {
		return
	}
	h.l.Debug("synckv.reconciled",
		"key", h.redact(key),
		"outcome", outcome)
}

// PendingChanged fires on every write; too chatty to log.
func (h *Hooks) PendingChanged(string, int) {}
