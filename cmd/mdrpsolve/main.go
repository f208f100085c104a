// Command mdrpsolve is the CLI composition root: reads an instance off
// disk, runs the preprocessing+MIP pipeline, and prints the journey report
// to stdout.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"

	"mdrp-solver/internal/adapters/ingest"
	"mdrp-solver/internal/adapters/report"
	"mdrp-solver/internal/adapters/scripting"
	"mdrp-solver/internal/config"
	"mdrp-solver/internal/refsolver"
	"mdrp-solver/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	instanceDir := flag.String("instance", config.Get("INSTANCE_DIR", "."), "directory containing couriers.txt, orders.txt, restaurants.txt, instance_parameters.txt")
	flag.Parse()

	opts := config.FromEnv()
	ctx := context.Background()

	reader := ingest.NewTextInstanceReader(*instanceDir)
	inst, err := reader.ReadInstance(ctx)
	if err != nil {
		log.Fatal(err)
	}

	policy, err := scripting.ResolvePolicy(opts.PaymentPolicyScript)
	if err != nil {
		log.Fatal(err)
	}

	deps := services.Dependencies{
		Solver: refsolver.New(),
		Policy: policy,
	}

	result, err := services.Solve(ctx, inst, opts, deps)
	if err != nil && result == nil {
		log.Fatal(err)
	}
	if err != nil {
		fmt.Println("infeasible instance")
		return
	}

	reporter := report.NewJourneyFormatter(language.AmericanEnglish)
	out, err := reporter.Report(ctx, result.Solution)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Print(out)
}
