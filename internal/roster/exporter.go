// Package roster renders club rosters and stores them as immutable blob
// artifacts.
package roster

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookclub/internal/blob"
	"bookclub/internal/core"
	"bookclub/pkg/domain"
)

// Format selects the roster encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat maps a request value to a Format. Empty means JSON.
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", domain.ValidationError{Field: "format", Reason: fmt.Sprintf("unsupported roster format %q", raw)}
	}
}

// ContentType returns the MIME type written for f.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv"
	}
	return "application/json"
}

// Source reads a club roster from one snapshot.
type Source interface {
	FetchRoster(ctx context.Context, clubID string) (core.Roster, error)
}

// Artifact describes a stored roster export.
type Artifact struct {
	Key         string    `json:"key"`
	ClubID      string    `json:"clubId"`
	Format      Format    `json:"format"`
	ContentType string    `json:"contentType"`
	SizeBytes   int64     `json:"sizeBytes"`
	Members     int       `json:"members"`
	URL         string    `json:"url,omitempty"`
	RequestedBy string    `json:"requestedBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Document is the JSON roster layout.
type Document struct {
	Club       domain.Club `json:"club"`
	Members    []Member    `json:"members"`
	ExportedBy string      `json:"exportedBy"`
	ExportedAt time.Time   `json:"exportedAt"`
}

// Member is one roster line.
type Member struct {
	UserID   string      `json:"userId"`
	Nickname string      `json:"nickname"`
	Email    string      `json:"email"`
	Pronouns string      `json:"pronouns,omitempty"`
	Role     domain.Role `json:"role"`
	JoinedAt time.Time   `json:"joinedAt"`
}

var csvHeader = []string{"userId", "nickname", "email", "pronouns", "role", "joinedAt"}

// Exporter renders rosters and writes them to a blob store.
type Exporter struct {
	source Source
	store  blob.Store
	logger core.Logger
	now    func() time.Time
	expiry time.Duration
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithLogger sets the logger used for export events.
func WithLogger(logger core.Logger) Option {
	return func(e *Exporter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock overrides the export timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) {
		if now != nil {
			e.now = now
		}
	}
}

// WithURLExpiry sets the lifetime of signed download URLs.
func WithURLExpiry(d time.Duration) Option {
	return func(e *Exporter) {
		if d > 0 {
			e.expiry = d
		}
	}
}

// NewExporter constructs an exporter over source and store.
func NewExporter(source Source, store blob.Store, opts ...Option) *Exporter {
	e := &Exporter{
		source: source,
		store:  store,
		logger: discardLogger{},
		now:    func() time.Time { return time.Now().UTC() },
		expiry: blob.DefaultURLExpiry,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Key returns the blob key of a roster exported at ts.
func Key(clubID string, ts time.Time, format Format) string {
	return fmt.Sprintf("rosters/%s/%s.%s", clubID, ts.UTC().Format("20060102T150405.000000000Z"), format)
}

// Export renders the roster of clubID and stores it. Only the club owner may
// export.
func (e *Exporter) Export(ctx context.Context, clubID, requesterID string, format Format) (Artifact, error) {
	if format != FormatJSON && format != FormatCSV {
		return Artifact{}, domain.ValidationError{Field: "format", Reason: fmt.Sprintf("unsupported roster format %q", format)}
	}
	roster, err := e.source.FetchRoster(ctx, clubID)
	if err != nil {
		return Artifact{}, err
	}
	if owner, ok := roster.Owner(); !ok || owner.Person.UserID != requesterID {
		return Artifact{}, domain.PermissionError{RequesterID: requesterID, ClubID: clubID, Operation: "export"}
	}

	createdAt := e.now()
	payload, err := render(format, roster, requesterID, createdAt)
	if err != nil {
		return Artifact{}, err
	}
	key := Key(clubID, createdAt, format)
	info, err := e.store.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: format.ContentType(),
		Metadata: map[string]string{
			"club":         clubID,
			"requested-by": requesterID,
			"members":      fmt.Sprint(len(roster.Members)),
		},
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("roster: store %s: %w", key, err)
	}

	artifact := Artifact{
		Key:         info.Key,
		ClubID:      clubID,
		Format:      format,
		ContentType: format.ContentType(),
		SizeBytes:   int64(len(payload)),
		Members:     len(roster.Members),
		URL:         info.URL,
		RequestedBy: requesterID,
		CreatedAt:   createdAt,
	}
	if signed, err := e.store.PresignURL(ctx, info.Key, blob.SignedURLOptions{Expiry: e.expiry}); err == nil {
		artifact.URL = signed
	} else if !errors.Is(err, blob.ErrUnsupported) {
		e.logger.Warn("roster url signing failed", "key", info.Key, "error", err)
	}
	e.logger.Info("roster exported", "club_id", clubID, "key", artifact.Key, "format", string(format), "members", artifact.Members)
	return artifact, nil
}

// List returns the stored exports of clubID, oldest first. Only the club
// owner may list them.
func (e *Exporter) List(ctx context.Context, clubID, requesterID string) ([]blob.Info, error) {
	roster, err := e.source.FetchRoster(ctx, clubID)
	if err != nil {
		return nil, err
	}
	if owner, ok := roster.Owner(); !ok || owner.Person.UserID != requesterID {
		return nil, domain.PermissionError{RequesterID: requesterID, ClubID: clubID, Operation: "list exports of"}
	}
	infos, err := e.store.List(ctx, "rosters/"+clubID+"/")
	if err != nil {
		return nil, fmt.Errorf("roster: list: %w", err)
	}
	return infos, nil
}

func render(format Format, roster core.Roster, requesterID string, at time.Time) ([]byte, error) {
	members := make([]Member, 0, len(roster.Members))
	for _, entry := range roster.Members {
		members = append(members, Member{
			UserID:   entry.Person.UserID,
			Nickname: entry.Person.Nickname,
			Email:    entry.Person.Email,
			Pronouns: entry.Person.Pronouns.UnwrapOr(""),
			Role:     entry.Membership.Role,
			JoinedAt: entry.Membership.CreatedAt,
		})
	}
	switch format {
	case FormatCSV:
		buf := &bytes.Buffer{}
		writer := csv.NewWriter(buf)
		if err := writer.Write(csvHeader); err != nil {
			return nil, err
		}
		for _, m := range members {
			record := []string{m.UserID, m.Nickname, m.Email, m.Pronouns, string(m.Role), m.JoinedAt.UTC().Format(time.RFC3339)}
			if err := writer.Write(record); err != nil {
				return nil, err
			}
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			return nil, fmt.Errorf("roster: encode csv: %w", err)
		}
		return buf.Bytes(), nil
	default:
		payload, err := json.Marshal(Document{Club: roster.Club, Members: members, ExportedBy: requesterID, ExportedAt: at})
		if err != nil {
			return nil, fmt.Errorf("roster: encode json: %w", err)
		}
		return payload, nil
	}
}

type discardLogger struct{}

func (discardLogger) Debug(string, ...any) {}
func (discardLogger) Info(string, ...any)  {}
func (discardLogger) Warn(string, ...any)  {}
func (discardLogger) Error(string, ...any) {}
