// Package lease watches the DHCP lease table and pushes updates to the
// controller.
//
// This code runs inside the rack agents. It polls the lease file for
// changes and, when the table differs from the last upload, hands the new
// batch to an upload callback (in practice the "update-leases" RPC, whose
// lease argument rides the compressed record-list codec).
//
// The modification time and content of the last-uploaded table are cached,
// to suppress redundant uploads. The cache is updated *before* the actual
// upload, to prevent thundering-herd problems: if an upload takes too long
// for whatever reason, subsequent polls must not pile more uploads on top
// of it. An upload may occasionally be lost to a failure, but the next real
// change rights the situation.
package lease

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"sync"
	"time"

	"rack-rpc/argument"
)

// UploadFunc receives the new lease batch, one record per lease with
// "ip" and "mac" string fields. It is called synchronously from Check.
type UploadFunc func(batch []argument.Record) error

// Poller tracks one lease file and uploads its table on change.
type Poller struct {
	path     string
	interval time.Duration
	upload   UploadFunc

	mu       sync.Mutex
	modTime  time.Time
	seenFile bool
	recorded map[string]string // ip → mac as last uploaded
}

// NewPoller creates a poller for the given lease file. Nothing is read
// until Check or Run is called.
func NewPoller(path string, interval time.Duration, upload UploadFunc) *Poller {
	return &Poller{
		path:     path,
		interval: interval,
		upload:   upload,
	}
}

// Run polls the lease file on the configured interval until ctx is
// cancelled. Poll errors are returned to the caller of Check only; Run
// keeps going so a transiently unreadable file doesn't stop lease updates
// for good.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Errors are dropped here; the next tick retries.
			p.Check()
		}
	}
}

// Check performs one poll: stat the file, and if its modification time or
// parsed content differ from the recorded snapshot, record the new state
// and upload the batch.
//
// A missing lease file means no leases yet; that is not an error and
// nothing is uploaded.
func (p *Poller) Check() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, err := os.Stat(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lease: stat %s: %w", p.path, err)
	}

	// Unchanged modification time — the table cannot have changed.
	if p.seenFile && st.ModTime().Equal(p.modTime) {
		return nil
	}

	leases, err := parseFile(p.path)
	if err != nil {
		return err
	}

	if p.seenFile && equal(leases, p.recorded) {
		// Touched but identical (e.g. the DHCP server rewrote the file).
		// Remember the new timestamp so the next poll is a cheap stat.
		p.modTime = st.ModTime()
		return nil
	}

	// Record the new state BEFORE uploading (see the package comment).
	p.modTime = st.ModTime()
	p.seenFile = true
	p.recorded = leases

	return p.upload(batch(leases))
}

// parseFile reads the lease file: a JSON object mapping each leased IP
// address to the hardware address it belongs to.
func parseFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lease: read %s: %w", path, err)
	}
	var leases map[string]string
	if err := json.Unmarshal(data, &leases); err != nil {
		return nil, fmt.Errorf("lease: parse %s: %w", path, err)
	}
	return leases, nil
}

// batch converts the lease table into records for the update-leases
// command, sorted by IP so the upload payload is deterministic.
func batch(leases map[string]string) []argument.Record {
	ips := make([]string, 0, len(leases))
	for ip := range leases {
		ips = append(ips, ip)
	}
	sort.Strings(ips)

	records := make([]argument.Record, 0, len(ips))
	for _, ip := range ips {
		records = append(records, argument.Record{"ip": ip, "mac": leases[ip]})
	}
	return records
}

func equal(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}
