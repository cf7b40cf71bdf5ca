// Command seed-demo populates the configured backend with a demo user and a
// year of generated spending: fixed monthly bills, frequent small daily
// purchases, and occasional weekend splurges.
package main

import (
	"context"
	"math/rand"
	"os"
	"time"

	"github.com/joho/godotenv"

	"spendtrack/internal/backend"
	"spendtrack/internal/config"
	"spendtrack/internal/core"
	"spendtrack/internal/log"
	"spendtrack/internal/storage"
)

const (
	demoEmail      = "demo@spendtrack.local"
	demoName       = "Demo User"
	daysToSimulate = 365
)

type fixedBill struct {
	name     string
	merchant string
	cents    int64
	category string
}

type spendPattern struct {
	merchants []string
	category  string
	minCents  int64
	maxCents  int64
}

var fixedBills = []fixedBill{
	{"Rent", "Landlord", 25000, "Rent/Mortgage"},
	{"Fiber Internet", "Orange", 2500, "Utilities"},
	{"Mobile Plan", "Zain", 1500, "Utilities"},
	{"Netflix", "Netflix", 800, "Entertainment"},
}

var dailyPatterns = []spendPattern{
	{[]string{"Abu Jbara", "Al Kalha", "Shawerma Reem", "Firefly"}, "Dining", 250, 800},
	{[]string{"Starbucks", "Astrolabe", "Dunkin", "University Cafeteria"}, "Dining", 300, 600},
	{[]string{"Careem", "Uber", "Taxi", "Bus"}, "Transport", 100, 500},
	{[]string{"Supermarket"}, "Groceries", 200, 1000},
}

var weeklyPatterns = []spendPattern{
	{[]string{"Carrefour", "Cozmo", "Miles", "Kareem Hypermarket"}, "Groceries", 2000, 6000},
	{[]string{"Manaseer Gas", "JoPetrol", "Total"}, "Transport", 1500, 3000},
	{[]string{"City Mall", "Taj Mall", "Mecca Mall"}, "Entertainment", 2000, 8000},
	{[]string{"Steam Games", "PlayStation Store"}, "Entertainment", 1000, 5000},
}

func main() {
	_ = godotenv.Load()

	cfgLog := log.DefaultConfig()
	cfgLog.Component = log.ComponentSeed
	logger := log.New(cfgLog)
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	store, err := backend.Open(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open storage backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer store.Close()

	if err := seed(ctx, store, logger); err != nil {
		logger.Error("Seeding failed", "error", err)
		os.Exit(1)
	}
}

func seed(ctx context.Context, store storage.Store, logger *log.Logger) error {
	userID, err := store.CreateUser(ctx, demoName, demoEmail)
	if err != nil {
		return err
	}
	logger.Info("Demo user ready", "user_id", userID, "email", demoEmail)

	if err := store.EnsureStarterCategories(ctx, userID); err != nil {
		return err
	}
	cats, err := store.ListCategories(ctx, userID)
	if err != nil {
		return err
	}
	categoryIDs := make(map[string]string, len(cats))
	for _, c := range cats {
		categoryIDs[c.Name] = c.ID
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	today := core.Midnight(time.Now())

	var batch []core.Expense
	addExpense := func(title, merchant string, cents int64, date time.Time, category string) {
		catID := categoryIDs[category]
		if catID == "" {
			catID = categoryIDs[core.UncategorizedName]
		}
		batch = append(batch, core.Expense{
			UserID:     userID,
			Title:      title,
			Amount:     core.Money{Cents: cents},
			Merchant:   merchant,
			Date:       date,
			CategoryID: &catID,
		})
	}

	for i := 0; i < daysToSimulate; i++ {
		day := today.AddDate(0, 0, -i)
		weekend := day.Weekday() == time.Friday || day.Weekday() == time.Saturday

		// Fixed bills land on the first of each month.
		if day.Day() == 1 {
			for _, bill := range fixedBills {
				addExpense(bill.name+" Bill", bill.merchant, bill.cents, day, bill.category)
			}
		}

		// Small everyday purchases on most days, one to three per day.
		if rng.Float64() > 0.2 {
			for j := 0; j < rng.Intn(3)+1; j++ {
				p := dailyPatterns[rng.Intn(len(dailyPatterns))]
				merchant := p.merchants[rng.Intn(len(p.merchants))]
				addExpense(merchant+" Purchase", merchant, randomCents(rng, p.minCents, p.maxCents), day, p.category)
			}
		}

		// Bigger purchases cluster on weekends.
		probability := 0.1
		if weekend {
			probability = 0.6
		}
		if rng.Float64() < probability {
			p := weeklyPatterns[rng.Intn(len(weeklyPatterns))]
			merchant := p.merchants[rng.Intn(len(p.merchants))]
			addExpense(merchant+" Purchase", merchant, randomCents(rng, p.minCents, p.maxCents), day, p.category)
		}
	}

	logger.Info("Inserting generated expenses", "count", len(batch))
	inserted, err := store.BulkInsertExpenses(ctx, batch)
	if err != nil {
		return err
	}
	logger.Info("Seeding complete", "inserted", inserted)
	return nil
}

func randomCents(rng *rand.Rand, min, max int64) int64 {
	return min + rng.Int63n(max-min+1)
}
