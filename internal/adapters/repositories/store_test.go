package repositories

import (
	"context"
	"delivery-reschedule-service/internal/domain"
	"delivery-reschedule-service/internal/platform/db"
	"delivery-reschedule-service/internal/ports"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const testSeed = `{
  "packages": [
    {"id": 1, "tracking_id": "TRACK123", "customer_name": "John Doe", "phone": "1234567890",
     "address": "123 Main St, Anytown", "postal_code": "12345", "email": "john@example.com",
     "scheduled_at": "2025-08-03 09:00:00", "status": "Out for Delivery"},
    {"id": 2, "tracking_id": "TRACK456", "customer_name": "Jane Smith", "phone": "0987654321",
     "address": "99 North Ave, Othertown", "postal_code": "98765", "email": "jane@example.com",
     "scheduled_at": "2025-08-04 14:00:00", "status": "Scheduled"}
  ],
  "call_logs": [
    {"id": 1, "tracking_id": "TRACK123", "transcript": "seeded", "completed": 0,
     "escalated": 0, "created_at": "2025-08-02T10:00:00"},
    {"id": 7, "tracking_id": "XYZINVALID", "transcript": "escalated", "completed": false,
     "escalated": true, "created_at": "2025-08-02T10:05:00"}
  ]
}`

func writeSeed(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.json")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return path
}

type storeFactory func(t *testing.T, seedPath string) ports.RecordStore

func fileStore(t *testing.T, seedPath string) ports.RecordStore {
	store := NewJSONFileStore(filepath.Join(t.TempDir(), "state", "data.json"))
	if err := store.Seed(context.Background(), seedPath); err != nil {
		t.Fatalf("seed file store: %v", err)
	}
	return store
}

func redisStore(t *testing.T, seedPath string) ports.RecordStore {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client, "")
	if err := store.Seed(context.Background(), seedPath); err != nil {
		t.Fatalf("seed redis store: %v", err)
	}
	return store
}

func sqliteStore(t *testing.T, seedPath string) ports.RecordStore {
	ctx := context.Background()

	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	if err := InitSchema(ctx, conn, DialectSQLite); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	if err := SeedFromJSON(ctx, conn, DialectSQLite, seedPath); err != nil {
		t.Fatalf("seed sqlite: %v", err)
	}
	return NewSQLRecordStore(conn, DialectSQLite)
}

var stores = map[string]storeFactory{
	"file":   fileStore,
	"redis":  redisStore,
	"sqlite": sqliteStore,
}

func TestRecordStores(t *testing.T) {
	for name, factory := range stores {
		t.Run(name, func(t *testing.T) {
			seedPath := writeSeed(t, testSeed)

			t.Run("find package", func(t *testing.T) {
				store := factory(t, seedPath)
				pkg, err := store.FindPackage(context.Background(), "TRACK123")
				if err != nil {
					t.Fatalf("FindPackage: %v", err)
				}
				if pkg.CustomerName != "John Doe" || pkg.PostalCode != "12345" || pkg.Status != "Out for Delivery" {
					t.Errorf("unexpected package %+v", pkg)
				}

				_, err = store.FindPackage(context.Background(), "NOPE")
				if !errors.Is(err, ports.ErrPackageNotFound) {
					t.Errorf("err = %v, want ErrPackageNotFound", err)
				}
			})

			t.Run("update schedule", func(t *testing.T) {
				store := factory(t, seedPath)
				ctx := context.Background()

				if err := store.UpdatePackageSchedule(ctx, "TRACK456", "2025-08-09 Morning"); err != nil {
					t.Fatalf("UpdatePackageSchedule: %v", err)
				}
				pkg, err := store.FindPackage(ctx, "TRACK456")
				if err != nil {
					t.Fatalf("FindPackage: %v", err)
				}
				if pkg.ScheduledAt != "2025-08-09 Morning" {
					t.Errorf("scheduled_at = %q", pkg.ScheduledAt)
				}

				err = store.UpdatePackageSchedule(ctx, "NOPE", "x")
				if !errors.Is(err, ports.ErrPackageNotFound) {
					t.Errorf("err = %v, want ErrPackageNotFound", err)
				}
			})

			t.Run("append and complete call logs", func(t *testing.T) {
				store := factory(t, seedPath)
				ctx := context.Background()
				at := time.Date(2025, 8, 6, 14, 30, 15, 0, time.Local)

				id, err := store.AppendCallLog(ctx, domain.CallLog{
					TrackingID: "TRACK123",
					Transcript: "Agent: hello",
					Completed:  true,
					CreatedAt:  at,
				})
				if err != nil {
					t.Fatalf("AppendCallLog: %v", err)
				}
				if id != 8 {
					t.Errorf("id = %d, want 8 (max existing id + 1)", id)
				}

				if err := store.MarkIncompleteLogsCompleted(ctx, "TRACK123"); err != nil {
					t.Fatalf("MarkIncompleteLogsCompleted: %v", err)
				}

				logs, err := store.ListCallLogs(ctx, "TRACK123")
				if err != nil {
					t.Fatalf("ListCallLogs: %v", err)
				}
				var ids []int64
				for _, l := range logs {
					ids = append(ids, l.ID)
					if !l.Completed {
						t.Errorf("log %d not completed", l.ID)
					}
				}
				if !slices.Equal(ids, []int64{1, 8}) {
					t.Fatalf("ids = %v, want [1 8]", ids)
				}
				if !logs[1].CreatedAt.Equal(at) {
					t.Errorf("created_at = %v, want %v", logs[1].CreatedAt, at)
				}
				if logs[1].Escalated {
					t.Error("new log should not be escalated")
				}

				other, err := store.ListCallLogs(ctx, "XYZINVALID")
				if err != nil {
					t.Fatalf("ListCallLogs: %v", err)
				}
				if len(other) != 1 || other[0].Completed || !other[0].Escalated {
					t.Errorf("other package's log changed: %+v", other)
				}
			})

			t.Run("first call log gets id 1", func(t *testing.T) {
				store := factory(t, writeSeed(t, `{"packages":[{"tracking_id":"A1","status":"Scheduled"}],"call_logs":[]}`))
				id, err := store.AppendCallLog(context.Background(), domain.CallLog{TrackingID: "A1", Completed: true})
				if err != nil {
					t.Fatalf("AppendCallLog: %v", err)
				}
				if id != 1 {
					t.Errorf("id = %d, want 1", id)
				}
			})
		})
	}
}

func TestJSONFileStoreMissingFileIsEmpty(t *testing.T) {
	store := NewJSONFileStore(filepath.Join(t.TempDir(), "absent.json"))

	_, err := store.FindPackage(context.Background(), "TRACK123")
	if !errors.Is(err, ports.ErrPackageNotFound) {
		t.Fatalf("err = %v, want ErrPackageNotFound", err)
	}
}

func TestJSONFileStoreConcurrentAppends(t *testing.T) {
	store := fileStore(t, writeSeed(t, testSeed))
	ctx := context.Background()

	const n = 20
	ids := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := store.AppendCallLog(ctx, domain.CallLog{TrackingID: "TRACK456", Completed: true})
			if err != nil {
				t.Errorf("AppendCallLog: %v", err)
				return
			}
			ids[i] = id
		}()
	}
	wg.Wait()

	slices.Sort(ids)
	for i, id := range ids {
		if id != int64(8+i) {
			t.Fatalf("ids = %v, want 8..%d without gaps", ids, 8+n-1)
		}
	}
}

func TestRedisStoreSeesExternalWrites(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client, "custom:key")
	mr.Set("custom:key", `{"packages":[{"tracking_id":"R1","status":"Scheduled"}],"call_logs":[]}`)

	pkg, err := store.FindPackage(context.Background(), "R1")
	if err != nil {
		t.Fatalf("FindPackage: %v", err)
	}
	if pkg.Status != "Scheduled" {
		t.Errorf("status = %q", pkg.Status)
	}

	mr.Set("custom:key", "not json")
	if _, err := store.FindPackage(context.Background(), "R1"); err == nil {
		t.Error("expected decode error for corrupt document")
	}
}

func TestReadSeedFileValidation(t *testing.T) {
	tests := []struct {
		name string
		seed string
	}{
		{name: "empty tracking id", seed: `{"packages":[{"tracking_id":" "}]}`},
		{name: "duplicate tracking id", seed: `{"packages":[{"tracking_id":"A"},{"tracking_id":"A"}]}`},
		{name: "zero call log id", seed: `{"call_logs":[{"id":0,"tracking_id":"A"}]}`},
		{name: "duplicate call log id", seed: `{"call_logs":[{"id":3},{"id":3}]}`},
		{name: "bad completed flag", seed: `{"call_logs":[{"id":1,"completed":"yes"}]}`},
		{name: "not json", seed: `{"packages":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := readSeedFile(writeSeed(t, tt.seed)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestDocumentEncodesFlagsAsIntegers(t *testing.T) {
	doc := &stateDocument{CallLogs: []callLogRecord{{ID: 1, Completed: true}}}
	data, err := doc.encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	back, err := decodeDocument(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bool(back.CallLogs[0].Completed) || bool(back.CallLogs[0].Escalated) {
		t.Errorf("flags = %+v", back.CallLogs[0])
	}
	if !strings.Contains(string(data), `"completed": 1`) || !strings.Contains(string(data), `"escalated": 0`) {
		t.Errorf("flags not encoded as 0/1:\n%s", data)
	}
}

func TestRebind(t *testing.T) {
	q := "UPDATE packages SET scheduled_at = ? WHERE tracking_id = ?;"

	if got := rebind(DialectSQLite, q); got != q {
		t.Errorf("sqlite rebind changed query: %q", got)
	}

	want := "UPDATE packages SET scheduled_at = $1 WHERE tracking_id = $2;"
	if got := rebind(DialectPostgres, q); got != want {
		t.Errorf("postgres rebind = %q, want %q", got, want)
	}
}

func TestSchemaStatementsRejectsUnknownDialect(t *testing.T) {
	if _, err := schemaStatements("mysql"); err == nil {
		t.Fatal("expected error for unknown dialect")
	}
}
