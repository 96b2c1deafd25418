// Package main provides CLI for tenant management.
// Usage: tenant migrate
//
//	tenant init-sequence --tenant <uuid> --last FAC-00041 [--prefix B001]
//	tenant token --tenant <uuid> --user <uuid> --name Ana --role cashier
//	tenant list
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"cashpoint/internal/config"
	appctx "cashpoint/internal/core/context"
	"cashpoint/internal/core/id"
	"cashpoint/internal/domain/auth"
	"cashpoint/internal/infrastructure/numerator"
	"cashpoint/internal/infrastructure/storage/postgres"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "migrate":
		migrate(cfg)
	case "init-sequence":
		initSequence(ctx, cfg)
	case "token":
		issueToken(cfg)
	case "list":
		listTenants(ctx, cfg)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Cashpoint Tenant Management CLI

Usage:
  tenant <command> [options]

Commands:
  migrate        Run database migrations (requires goose in PATH)
  init-sequence  Continue invoice numbering from an existing series
  token          Issue an access token for a tenant user
  list           List tenants with their invoice series
  help           Show this help

Environment Variables:
  DATABASE_URL   Connection string (required for migrate, init-sequence, list)
  JWT_SECRET     Signing secret (required for token)
  JWT_ISSUER     Token issuer
  INVOICE_PREFIX Default invoice prefix

Examples:
  tenant migrate
  tenant init-sequence --tenant <uuid> --last FAC-00041
  tenant init-sequence --tenant <uuid> --last 41 --prefix B001
  tenant token --tenant <uuid> --user <uuid> --name "Ana" --role cashier --ttl 8h
  tenant list`)
}

// flags parses "--name value" pairs after the command.
func flags() map[string]string {
	out := map[string]string{}
	for i := 2; i < len(os.Args); i++ {
		if !strings.HasPrefix(os.Args[i], "--") {
			continue
		}
		name := strings.TrimPrefix(os.Args[i], "--")
		if i+1 < len(os.Args) && !strings.HasPrefix(os.Args[i+1], "--") {
			out[name] = os.Args[i+1]
			i++
			continue
		}
		out[name] = "true"
	}
	return out
}

func mustID(value, flag string) id.ID {
	if value == "" {
		fmt.Printf("Error: --%s is required\n", flag)
		os.Exit(1)
	}
	parsed, err := id.Parse(value)
	if err != nil {
		fmt.Printf("Error: --%s must be a UUID\n", flag)
		os.Exit(1)
	}
	return parsed
}

func getPool(ctx context.Context, cfg *config.Config) *postgres.Pool {
	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.DatabaseURL).WithConns(2, 0))
	if err != nil {
		fmt.Printf("Error connecting to database: %v\n", err)
		os.Exit(1)
	}
	return pool
}

func migrate(cfg *config.Config) {
	fmt.Println("Running migrations...")
	cmd := exec.Command("goose", "-dir", "db/migrations", "postgres", cfg.DatabaseURL, "up")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		fmt.Printf("  ✗ Failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("  ✓ Done")
}

func initSequence(ctx context.Context, cfg *config.Config) {
	f := flags()
	tenantID := mustID(f["tenant"], "tenant")

	last, ok := f["last"]
	if !ok {
		fmt.Println("Error: --last is required (a number or a full invoice number)")
		os.Exit(1)
	}
	lastIssued, err := strconv.ParseInt(last, 10, 64)
	if err != nil {
		lastIssued = numerator.ParseNumber(last)
	}
	if lastIssued < 0 {
		fmt.Printf("Error: cannot read a number from %q\n", last)
		os.Exit(1)
	}

	pool := getPool(ctx, cfg)
	defer pool.Close()

	sequencer := numerator.New(postgres.NewTxManager(pool), cfg.InvoicePrefix)
	if err := sequencer.SetNext(ctx, tenantID, f["prefix"], lastIssued); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Tenant %s continues after invoice number %d\n", tenantID, lastIssued)
}

func issueToken(cfg *config.Config) {
	f := flags()
	tenantID := mustID(f["tenant"], "tenant")
	userID := mustID(f["user"], "user")

	role := f["role"]
	if role == "" {
		role = auth.RoleCashier
	}
	if !auth.ValidRole(role) {
		fmt.Printf("Error: unknown role %q\n", role)
		os.Exit(1)
	}

	jwtConfig := auth.DefaultJWTConfig(cfg.JWTSecret)
	jwtConfig.Issuer = cfg.JWTIssuer
	if ttl, ok := f["ttl"]; ok {
		d, err := time.ParseDuration(ttl)
		if err != nil || d <= 0 {
			fmt.Printf("Error: invalid --ttl %q\n", ttl)
			os.Exit(1)
		}
		jwtConfig.AccessTokenTTL = d
	}

	token, expiresAt, err := auth.NewJWTService(jwtConfig).GenerateAccessToken(appctx.UserContext{
		UserID:   userID.String(),
		TenantID: tenantID.String(),
		UserName: f["name"],
		Email:    f["email"],
		Roles:    []string{role},
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "expires at %s\n", expiresAt.UTC().Format(time.RFC3339))
	fmt.Println(token)
}

func listTenants(ctx context.Context, cfg *config.Config) {
	pool := getPool(ctx, cfg)
	defer pool.Close()

	rows, err := pool.Query(ctx, `
		SELECT s.tenant_id, s.prefix, s.current_value,
		       EXISTS (SELECT 1 FROM cash_sessions c WHERE c.tenant_id = s.tenant_id AND c.status = 'open')
		FROM invoice_sequences s
		ORDER BY s.updated_at DESC
	`)
	if err != nil {
		fmt.Printf("Error listing tenants: %v\n", err)
		os.Exit(1)
	}
	defer rows.Close()

	fmt.Printf("%-36s %-10s %-12s %-8s\n", "TENANT_ID", "PREFIX", "LAST_ISSUED", "DRAWER")
	fmt.Println(strings.Repeat("-", 70))

	count := 0
	for rows.Next() {
		var (
			tenantID id.ID
			prefix   string
			current  int64
			open     bool
		)
		if err := rows.Scan(&tenantID, &prefix, &current, &open); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		drawer := "closed"
		if open {
			drawer = "open"
		}
		fmt.Printf("%-36s %-10s %-12d %-8s\n", tenantID, truncate(prefix, 10), current, drawer)
		count++
	}
	if err := rows.Err(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if count == 0 {
		fmt.Println("No tenants found")
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
