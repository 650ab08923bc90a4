package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/af-corp/containment-gateway/internal/auth"
)

func main() {
	tenant := flag.String("tenant", "", "tenant ID (required)")
	school := flag.String("school", "", "school ID (optional, scopes the key to one school)")
	name := flag.String("name", "", "human-friendly key name (required)")
	env := flag.String("env", "prod", "environment prefix")
	rpm := flag.Int("rpm", 0, "per-key requests per minute (0 = gateway default)")
	dailyTokens := flag.Int64("daily-tokens", 0, "tenant daily token quota carried by this key (0 = unlimited)")
	expires := flag.String("expires", "365d", "expiry duration (e.g., 365d, 720h)")
	dbURL := flag.String("db-url", "", "database URL (overrides env)")
	flag.Parse()

	if *tenant == "" || *name == "" {
		flag.Usage()
		fmt.Fprintln(os.Stderr, "\nerror: -tenant and -name are required")
		os.Exit(1)
	}

	rawKey, err := auth.GenerateKey(*env)
	if err != nil {
		log.Fatalf("failed to generate key: %v", err)
	}
	keyPrefix := auth.KeyPrefix(rawKey)

	dur, err := auth.ParseDuration(*expires)
	if err != nil {
		log.Fatalf("invalid expires: %v", err)
	}

	meta := auth.KeyMetadata{
		TenantID:  *tenant,
		SchoolID:  *school,
		Name:      *name,
		ExpiresAt: time.Now().Add(dur),
	}
	if *rpm > 0 {
		meta.RPMLimit = rpm
	}
	if *dailyTokens > 0 {
		meta.DailyTokenLimit = dailyTokens
	}

	dsn := *dbURL
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		host := envOrDefault("DB_HOST", "localhost")
		port := envOrDefault("DB_PORT", "5432")
		u := envOrDefault("DB_USER", "containment")
		pass := envOrDefault("DB_PASSWORD", "containment-dev")
		dbname := envOrDefault("DB_NAME", "containment")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", u, pass, host, port, dbname)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer conn.Close(ctx)

	keyID, err := auth.InsertKey(ctx, conn, auth.HashKey(rawKey), keyPrefix, meta)
	if err != nil {
		log.Fatalf("failed to insert key: %v", err)
	}

	fmt.Println("=== Containment Gateway Key Generated ===")
	fmt.Println()
	fmt.Printf("  Key ID:       %s\n", keyID)
	fmt.Printf("  Key Prefix:   %s\n", keyPrefix)
	fmt.Printf("  Tenant:       %s\n", *tenant)
	if *school != "" {
		fmt.Printf("  School:       %s\n", *school)
	}
	if meta.RPMLimit != nil {
		fmt.Printf("  RPM Limit:    %d\n", *meta.RPMLimit)
	}
	if meta.DailyTokenLimit != nil {
		fmt.Printf("  Daily Tokens: %d\n", *meta.DailyTokenLimit)
	}
	fmt.Printf("  Expires:      %s\n", meta.ExpiresAt.Format(time.RFC3339))
	fmt.Println()
	fmt.Println("  API Key (save this, it will NOT be shown again):")
	fmt.Printf("  %s\n", rawKey)
	fmt.Println()
	fmt.Println("=========================================")
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
