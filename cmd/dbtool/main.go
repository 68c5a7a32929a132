package main

import (
	"context"
	"delivery-reschedule-service/internal/adapters/repositories"
	"delivery-reschedule-service/internal/adapters/signature"
	"delivery-reschedule-service/internal/config"
	"delivery-reschedule-service/internal/domain"
	"delivery-reschedule-service/internal/platform/logging"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

const usage = `usage: dbtool <command> [flags]

commands:
  init                      create the schema (SQL stores) without seeding
  seed                      create the schema and load the seed file
  dump --tracking-id ID     print a package and its call logs as JSON
  sign --body FILE          print a signature header for a webhook body
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]

	fs := pflag.NewFlagSet(cmd, pflag.ExitOnError)
	configPath := fs.StringP("config", "c", "", "path to an optional YAML config file")
	seedPath := fs.String("seed", "", "seed file (defaults to SEED_PATH)")
	trackingID := fs.String("tracking-id", "", "tracking id to dump")
	bodyPath := fs.String("body", "-", "webhook body to sign, - for stdin")
	_ = fs.Parse(args)

	cfg, err := config.Read(*configPath)
	if err != nil {
		fail(err)
	}
	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	ctx := logger.WithContext(context.Background())

	switch cmd {
	case "init":
		err = withStore(ctx, cfg.Store, func(*repositories.Backend) error {
			logger.Info().Str("store", cfg.Store.Driver).Msg("schema ready")
			return nil
		})
	case "seed":
		path := *seedPath
		if path == "" {
			path = cfg.Store.SeedPath
		}
		err = withStore(ctx, cfg.Store, func(store *repositories.Backend) error {
			if err := store.Seed(ctx, path); err != nil {
				return err
			}
			logger.Info().Str("store", cfg.Store.Driver).Str("seed_path", path).Msg("seeding complete")
			return nil
		})
	case "dump":
		err = withStore(ctx, cfg.Store, func(store *repositories.Backend) error {
			return dump(ctx, store, *trackingID, os.Stdout)
		})
	case "sign":
		err = sign(cfg.SigningKey, *bodyPath, os.Stdout)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		logger.Fatal().Err(err).Str("command", cmd).Msg("dbtool failed")
	}
}

func fail(err error) {
	fatalLogger := logging.New(logging.Config{Format: "console"})
	fatalLogger.Fatal().Err(err).Msg("dbtool failed")
}

func withStore(ctx context.Context, cfg config.StoreConfig, fn func(*repositories.Backend) error) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	store, err := repositories.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(store)
}

type packageView struct {
	ID           int64  `json:"id"`
	TrackingID   string `json:"tracking_id"`
	CustomerName string `json:"customer_name"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	PostalCode   string `json:"postal_code"`
	Email        string `json:"email"`
	ScheduledAt  string `json:"scheduled_at"`
	Status       string `json:"status"`
}

type callLogView struct {
	ID         int64  `json:"id"`
	Transcript string `json:"transcript"`
	Completed  bool   `json:"completed"`
	Escalated  bool   `json:"escalated"`
	CreatedAt  string `json:"created_at"`
}

type dumpOutput struct {
	Package  packageView   `json:"package"`
	CallLogs []callLogView `json:"call_logs"`
}

func dump(ctx context.Context, store *repositories.Backend, trackingID string, w io.Writer) error {
	if strings.TrimSpace(trackingID) == "" {
		return errors.New("dump: --tracking-id is required")
	}

	pkg, err := store.FindPackage(ctx, trackingID)
	if err != nil {
		return fmt.Errorf("dump: %w", err)
	}

	logs, err := store.ListCallLogs(ctx, trackingID)
	if err != nil {
		return fmt.Errorf("dump: %w", err)
	}

	out := dumpOutput{
		Package: packageView{
			ID:           pkg.ID,
			TrackingID:   pkg.TrackingID,
			CustomerName: pkg.CustomerName,
			Phone:        pkg.Phone,
			Address:      pkg.Address,
			PostalCode:   pkg.PostalCode,
			Email:        pkg.Email,
			ScheduledAt:  pkg.ScheduledAt,
			Status:       pkg.Status,
		},
		CallLogs: make([]callLogView, 0, len(logs)),
	}
	for _, l := range logs {
		out.CallLogs = append(out.CallLogs, callLogView{
			ID:         l.ID,
			Transcript: l.Transcript,
			Completed:  l.Completed,
			Escalated:  l.Escalated,
			CreatedAt:  l.CreatedAt.Format(domain.CreatedAtLayout),
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// sign prints the signature header value a caller would send with the body.
func sign(key, bodyPath string, w io.Writer) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("sign: RETELL_API_KEY is required")
	}

	var body []byte
	var err error
	if bodyPath == "-" {
		body, err = io.ReadAll(os.Stdin)
	} else {
		body, err = os.ReadFile(bodyPath)
	}
	if err != nil {
		return fmt.Errorf("sign: read body: %w", err)
	}

	canonical, err := signature.Canonicalize(body)
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}

	_, err = fmt.Fprintln(w, signature.Sign(canonical, key, time.Now()))
	return err
}
