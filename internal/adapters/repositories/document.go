package repositories

import (
	"bytes"
	"delivery-reschedule-service/internal/domain"
	"delivery-reschedule-service/internal/ports"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"
)

// stateDocument is the whole persisted state used by the document stores
// (JSON file and Redis) and by the seed file format.
type stateDocument struct {
	Packages []packageRecord `json:"packages"`
	CallLogs []callLogRecord `json:"call_logs"`
}

type packageRecord struct {
	ID           int64  `json:"id,omitempty"`
	TrackingID   string `json:"tracking_id"`
	CustomerName string `json:"customer_name"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	PostalCode   string `json:"postal_code"`
	Email        string `json:"email"`
	ScheduledAt  string `json:"scheduled_at"`
	Status       string `json:"status"`
}

type callLogRecord struct {
	ID         int64   `json:"id"`
	TrackingID string  `json:"tracking_id"`
	Transcript string  `json:"transcript"`
	Completed  intBool `json:"completed"`
	Escalated  intBool `json:"escalated"`
	CreatedAt  string  `json:"created_at"`
}

// intBool is persisted as 0/1 and also accepts JSON booleans on read.
type intBool bool

func (b intBool) MarshalJSON() ([]byte, error) {
	if b {
		return []byte("1"), nil
	}
	return []byte("0"), nil
}

func (b *intBool) UnmarshalJSON(data []byte) error {
	switch strings.TrimSpace(string(data)) {
	case "1", "true":
		*b = true
	case "0", "false", "null":
		*b = false
	default:
		return fmt.Errorf("invalid flag value %s", data)
	}
	return nil
}

func decodeDocument(data []byte) (*stateDocument, error) {
	doc := &stateDocument{}
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("decode state document: %w", err)
	}
	return doc, nil
}

func (d *stateDocument) encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("encode state document: %w", err)
	}
	return buf.Bytes(), nil
}

func (d *stateDocument) findPackage(trackingID string) (*domain.Package, error) {
	for i := range d.Packages {
		if d.Packages[i].TrackingID == trackingID {
			return d.Packages[i].toDomain(), nil
		}
	}
	return nil, ports.ErrPackageNotFound
}

func (d *stateDocument) updateSchedule(trackingID string, newDate string) error {
	for i := range d.Packages {
		if d.Packages[i].TrackingID == trackingID {
			d.Packages[i].ScheduledAt = newDate
			return nil
		}
	}
	return ports.ErrPackageNotFound
}

func (d *stateDocument) appendCallLog(log domain.CallLog) int64 {
	var maxID int64
	for _, l := range d.CallLogs {
		if l.ID > maxID {
			maxID = l.ID
		}
	}

	log.ID = maxID + 1
	d.CallLogs = append(d.CallLogs, callLogFromDomain(log))
	return log.ID
}

// markIncompleteCompleted returns the number of logs it changed.
func (d *stateDocument) markIncompleteCompleted(trackingID string) int {
	n := 0
	for i := range d.CallLogs {
		if d.CallLogs[i].TrackingID == trackingID && !d.CallLogs[i].Completed {
			d.CallLogs[i].Completed = true
			n++
		}
	}
	return n
}

func (d *stateDocument) callLogs(trackingID string) []domain.CallLog {
	out := make([]domain.CallLog, 0, 4)
	for _, l := range d.CallLogs {
		if l.TrackingID == trackingID {
			out = append(out, l.toDomain())
		}
	}
	sortCallLogs(out)
	return out
}

func (p packageRecord) toDomain() *domain.Package {
	return &domain.Package{
		ID:           p.ID,
		TrackingID:   p.TrackingID,
		CustomerName: p.CustomerName,
		Phone:        p.Phone,
		Address:      p.Address,
		PostalCode:   p.PostalCode,
		Email:        p.Email,
		ScheduledAt:  p.ScheduledAt,
		Status:       p.Status,
	}
}

func (l callLogRecord) toDomain() domain.CallLog {
	return domain.CallLog{
		ID:         l.ID,
		TrackingID: l.TrackingID,
		Transcript: l.Transcript,
		Completed:  bool(l.Completed),
		Escalated:  bool(l.Escalated),
		CreatedAt:  parseCreatedAt(l.CreatedAt),
	}
}

func callLogFromDomain(l domain.CallLog) callLogRecord {
	return callLogRecord{
		ID:         l.ID,
		TrackingID: l.TrackingID,
		Transcript: l.Transcript,
		Completed:  intBool(l.Completed),
		Escalated:  intBool(l.Escalated),
		CreatedAt:  formatCreatedAt(l.CreatedAt),
	}
}

func formatCreatedAt(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Local().Format(domain.CreatedAtLayout)
}

// Unparseable timestamps from hand-edited seeds come back as the zero time.
func parseCreatedAt(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.ParseInLocation(domain.CreatedAtLayout, s, time.Local); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04:05", s, time.Local); err == nil {
		return t
	}
	return time.Time{}
}

// Read and validate a seed file in the state document format.
func readSeedFile(jsonPath string) (*stateDocument, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("seed: read %q: %w", jsonPath, err)
	}

	doc, err := decodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("seed: parse json: %w", err)
	}

	seen := make(map[string]struct{}, len(doc.Packages))
	for i, p := range doc.Packages {
		if strings.TrimSpace(p.TrackingID) == "" {
			return nil, fmt.Errorf("seed: package at index %d: tracking_id cannot be empty", i+1)
		}
		if _, ok := seen[p.TrackingID]; ok {
			return nil, fmt.Errorf("seed: package at index %d: duplicate tracking_id %q", i+1, p.TrackingID)
		}
		seen[p.TrackingID] = struct{}{}
	}

	ids := make(map[int64]struct{}, len(doc.CallLogs))
	for i, l := range doc.CallLogs {
		if l.ID <= 0 {
			return nil, fmt.Errorf("seed: call log at index %d: invalid id %d", i+1, l.ID)
		}
		if _, ok := ids[l.ID]; ok {
			return nil, fmt.Errorf("seed: call log at index %d: duplicate id %d", i+1, l.ID)
		}
		ids[l.ID] = struct{}{}
	}

	return doc, nil
}

func sortCallLogs(logs []domain.CallLog) {
	slices.SortFunc(logs, func(a, b domain.CallLog) int {
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
}
