// Command seeder inserts rays into a running crystalsim scene, filling the
// most open space first, until a target ray count is reached.
package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/talgya/widmanstatten/internal/config"
	"github.com/talgya/widmanstatten/internal/seeder"
)

func main() {
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, nil)
	if isatty.IsTerminal(os.Stdout.Fd()) {
		handler = slog.NewTextHandler(os.Stdout, nil)
	}
	slog.SetDefault(slog.New(handler))

	// Configuration from environment.
	apiURL := envOrDefault("CRYSTALSIM_API_URL", "http://localhost:8080")
	adminKey := os.Getenv(config.EnvAdminKey)
	interval := time.Duration(envIntOrDefault("SEEDER_INTERVAL_SEC", 5)) * time.Second
	policy := seeder.Policy{
		Target:     envIntOrDefault("SEEDER_TARGET", 50),
		Candidates: envIntOrDefault("SEEDER_CANDIDATES", 32),
	}

	if adminKey == "" {
		slog.Error(config.EnvAdminKey + " is required")
		os.Exit(1)
	}

	slog.Info("seeder starting", "api_url", apiURL, "interval", interval, "target", policy.Target)

	observer := seeder.NewObserver(apiURL)
	actor := seeder.NewActor(apiURL, adminKey)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	slog.Info("waiting for crystalsim API...")
	waitForAPI(apiURL)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		if done := runCycle(policy, observer, actor, rng); done {
			fmt.Println("Target reached. Seeder stopped.")
			return
		}
		select {
		case <-ticker.C:
		case sig := <-sigCh:
			slog.Info("received signal, shutting down", "signal", sig)
			fmt.Println("Seeder stopped.")
			return
		}
	}
}

// runCycle executes one observe → decide → act cycle. It reports true once the
// target is reached.
func runCycle(policy seeder.Policy, observer *seeder.Observer, actor *seeder.Actor, rng *rand.Rand) bool {
	snap, err := observer.Observe()
	if err != nil {
		slog.Error("observation failed", "error", err)
		return false
	}

	decision := seeder.Decide(policy, snap, rng)
	if decision.Insert == nil {
		slog.Info("no insertion", "rationale", decision.Rationale)
		return snap.Status.Rays >= policy.Target
	}

	ray, err := actor.Act(decision.Insert)
	if err != nil {
		slog.Error("insertion failed", "error", err)
		return false
	}
	slog.Info("ray inserted",
		"ray", ray.ID,
		"rationale", decision.Rationale,
		"limit_pos", ray.LimitPos,
		"limit_neg", ray.LimitNeg,
	)
	return false
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

// waitForAPI polls the status endpoint with exponential backoff until it
// responds. Exits after 5 minutes if the API never becomes ready.
func waitForAPI(apiURL string) {
	backoff := 2 * time.Second
	maxBackoff := 30 * time.Second
	deadline := time.Now().Add(5 * time.Minute)

	for {
		resp, err := http.Get(apiURL + "/api/v1/status")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				slog.Info("crystalsim API is ready")
				return
			}
		}
		if time.Now().After(deadline) {
			slog.Error("crystalsim API did not become ready within 5 minutes")
			os.Exit(1)
		}
		slog.Info("crystalsim not ready, retrying...", "backoff", backoff)
		time.Sleep(backoff)
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
