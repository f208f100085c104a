// Command mdrpserver exposes the MDRP preprocessing+MIP pipeline as a
// /solve HTTP service.
package main

import (
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
	"golang.org/x/text/language"

	"mdrp-solver/internal/adapters/cache"
	"mdrp-solver/internal/adapters/repositories"
	"mdrp-solver/internal/adapters/report"
	"mdrp-solver/internal/adapters/scripting"
	"mdrp-solver/internal/api"
	"mdrp-solver/internal/config"
	"mdrp-solver/internal/platform/db"
	"mdrp-solver/internal/refsolver"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	port := config.Get("PORT", "8080")
	opts := config.FromEnv()
	solver := refsolver.New()
	reporter := report.NewJourneyFormatter(language.AmericanEnglish)
	policy, err := scripting.ResolvePolicy(opts.PaymentPolicyScript)
	if err != nil {
		log.Fatal(err)
	}

	caches := buildCaches(opts)

	router := api.NewRouter(solver, reporter, policy, opts, caches)

	log.Printf("Server listening addr=:%s", port)
	srv := &http.Server{
		Addr: ":" + port,
		Handler: router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout: 10 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	log.Fatal(srv.ListenAndServe())
}

// buildCaches constructs the optional sequence/untimed-arc/cut-cache
// accelerators named by opts. A driver or address list left at its zero
// value yields a nil cache, and the solve pipeline falls straight through
// to recomputation.
func buildCaches(opts config.Options) api.Caches {
	var caches api.Caches

	switch opts.SequenceCacheDriver {
		case "postgres":
		conn, err := db.Open(opts.DatabaseURL)
		if err != nil {
			log.Fatalf("sequence cache: %v", err)
		}
		if err := repositories.InitSchema(conn); err != nil {
			log.Fatalf("sequence cache: schema init: %v", err)
		}
		caches.SequenceCache = cache.NewSQLSequenceCache(conn)
		caches.UntimedArcCache = cache.NewSQLUntimedArcCache(conn)
		case "sqlite":
		conn, err := sql.Open("sqlite", opts.SqlitePath)
		if err != nil {
			log.Fatalf("sequence cache: open sqlite %s: %v", opts.SqlitePath, err)
		}
		if err := repositories.InitSchema(conn); err != nil {
			log.Fatalf("sequence cache: schema init: %v", err)
		}
		caches.SequenceCache = cache.NewSqliteSequenceCache(conn)
		caches.UntimedArcCache = cache.NewSqliteUntimedArcCache(conn)
		case "none", "":
		// No-op: recompute sequences/untimed arcs on every solve.
		default:
		log.Fatalf("unknown SEQUENCE_CACHE_DRIVER %q", opts.SequenceCacheDriver)
	}

	if len(opts.CutCacheRedisAddrs) > 0 {
		cutCache, err := cache.NewRedisCutCache(opts.CutCacheRedisAddrs)
		if err != nil {
			log.Fatalf("cut cache: %v", err)
		}
		caches.CutCache = cutCache
	}

	return caches
}
