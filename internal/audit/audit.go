// Package audit keeps a trail of which user embedded which report.
//
// The request path only publishes an event; writing the trail happens on the
// bus subscriber, so a slow or failing disk never delays a page.
package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/auth"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/powerbi"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/pubsub"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/storage"
	"go.opentelemetry.io/otel/trace"
)

// ReportEmbedded is published after a report was rendered for a user.
var ReportEmbedded = pubsub.NewEvent[Event]("audit.report.embedded")

// Event is one audit record. Tokens are never part of it.
type Event struct {
	Time            time.Time         `json:"time"`
	UserID          string            `json:"user_id,omitempty"`
	UserName        string            `json:"user_name,omitempty"`
	TenantID        string            `json:"tenant_id,omitempty"`
	WorkspaceID     string            `json:"workspace_id"`
	ReportID        string            `json:"report_id"`
	ReportName      string            `json:"report_name"`
	TokenType       powerbi.TokenType `json:"token_type"`
	TokenExpiration time.Time         `json:"token_expiration"`
	TraceID         string            `json:"trace_id,omitempty"`
}

// Recorder publishes audit events.
type Recorder struct {
	pub pubsub.Publisher
	now func() time.Time
}

// NewRecorder creates a new Recorder.
func NewRecorder(pub pubsub.Publisher) *Recorder {
	return &Recorder{pub: pub, now: time.Now}
}

// RecordEmbed publishes a ReportEmbedded event. user may be nil when the
// report was embedded with a service principal.
func (r *Recorder) RecordEmbed(ctx context.Context, user *auth.Identity, vm *powerbi.ReportViewModel) error {
	ev := Event{
		Time:            r.now().UTC(),
		WorkspaceID:     vm.WorkspaceID,
		ReportID:        vm.ID,
		ReportName:      vm.Name,
		TokenType:       vm.TokenType,
		TokenExpiration: vm.Expiration,
	}
	if user != nil {
		ev.UserID = user.ObjectID
		ev.UserName = user.Username
		ev.TenantID = user.TenantID
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		ev.TraceID = sc.TraceID().String()
	}

	return pubsub.Publish(ctx, r.pub, ReportEmbedded, ev.UserID, ev)
}

// Sink appends every event as a JSON line to a file in a store.
type Sink struct {
	store  storage.Store
	path   string
	logger *slog.Logger
}

// NewSink creates a new Sink writing to path.
func NewSink(store storage.Store, path string, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{store: store, path: path, logger: logger}
}

// Start subscribes the sink to ReportEmbedded. It returns once the
// subscription is active.
func (s *Sink) Start(ctx context.Context, sub pubsub.Subscriber) error {
	return pubsub.Subscribe(ctx, sub, ReportEmbedded, s.write)
}

func (s *Sink) write(ctx context.Context, _ pubsub.Message, ev Event) error {
	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("audit: marshal event: %w", err)
	}
	if err := s.store.Append(ctx, s.path, append(line, '\n')); err != nil {
		return fmt.Errorf("audit: append to %s: %w", s.path, err)
	}
	s.logger.DebugContext(ctx, "Audit event written", "report_id", ev.ReportID, "user", ev.UserName)
	return nil
}

// OpenTrail returns a store on the local disk for the trail at path, and the
// name of the trail within that store.
func OpenTrail(path string) (*storage.AferoStore, string, error) {
	store, err := storage.NewOsStore(filepath.Dir(path))
	if err != nil {
		return nil, "", err
	}
	return store, filepath.Base(path), nil
}

// ReadEvents returns the events of the trail at path, oldest first. A trail
// that does not exist yet is empty. Lines that do not decode are skipped.
func ReadEvents(ctx context.Context, store storage.Store, path string) ([]Event, error) {
	f, err := store.Open(ctx, path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	defer f.Close()

	var events []Event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var ev Event
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	if err := sc.Err(); err != nil {
		return events, fmt.Errorf("audit: read %s: %w", path, err)
	}
	return events, nil
}
