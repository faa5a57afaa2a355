package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"financeflow/internal/cache"
	"financeflow/internal/core"
	"financeflow/internal/records"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultCacheTTL is how long a tab snapshot is served from memory.
const DefaultCacheTTL = 30 * time.Second

// Options configures a Sheets-backed store.
type Options struct {
	SpreadsheetID   string
	CredentialsJSON string
	CredentialsFile string
	CacheTTL        time.Duration
}

// Client stores each collection in its own tab of one spreadsheet. The first
// row of a tab is the header; columns are matched by normalized name, so both
// "amount" and "amount_c" headers work.
type Client struct {
	api   sheetAPI
	cache *cache.LRUCache[[][]string]
	// Writes are serialized so id assignment and row lookup stay consistent.
	writeMu sync.Mutex

	// genMu guards generations, bumped by every invalidate. A read only
	// fills the cache when no write invalidated its tab while it ran.
	genMu       sync.Mutex
	generations map[string]uint64
}

// NewFromEnv creates a Sheets client from environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Credentials: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	ttl := DefaultCacheTTL
	if v := strings.TrimSpace(os.Getenv("SHEETS_CACHE_TTL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			ttl = d
		}
	}
	return New(ctx, Options{
		SpreadsheetID:   os.Getenv("GOOGLE_SPREADSHEET_ID"),
		CredentialsJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		CredentialsFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
		CacheTTL:        ttl,
	})
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(&serviceAPI{svc: svc, spreadsheetID: spreadsheetID}, opts.CacheTTL), nil
}

func newClient(api sheetAPI, ttl time.Duration) *Client {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Client{
		api:         api,
		cache:       cache.NewLRUCache[[][]string](len(records.Kinds), ttl),
		generations: make(map[string]uint64, len(records.Kinds)),
	}
}

// Store exposes the spreadsheet as a record store, one tab per collection.
func (c *Client) Store() *records.Store {
	return &records.Store{
		Accounts:     newTab(c, records.KindAccounts, accountCodec, nil),
		Transactions: newTab(c, records.KindTransactions, transactionCodec, records.SortTransactions),
		Budgets:      newTab(c, records.KindBudgets, budgetCodec, nil),
		Bills:        newTab(c, records.KindBills, billCodec, nil),
		Goals:        newTab(c, records.KindGoals, goalCodec, nil),
	}
}

// Cache returns the tab snapshot cache so it can be registered for cleanup.
func (c *Client) Cache() *cache.LRUCache[[][]string] {
	return c.cache
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(opts.CredentialsJSON)
	serviceAccountFile := strings.TrimSpace(opts.CredentialsFile)

	// Also check the standard Google Cloud environment variable
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

// snapshot returns the tab contents as trimmed strings, served from cache
// when fresh.
func (c *Client) snapshot(ctx context.Context, tab string) ([][]string, error) {
	if rows, ok := c.cache.Get(tab); ok {
		return rows, nil
	}
	return c.readTab(ctx, tab)
}

// readTab always hits the API. Writers call it under writeMu so ids and row
// numbers come from the sheet itself, never from a cached copy.
func (c *Client) readTab(ctx context.Context, tab string) ([][]string, error) {
	gen := c.generation(tab)
	values, err := c.api.Read(ctx, tab+"!A:Z")
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", tab, err)
	}
	rows := make([][]string, len(values))
	for i, v := range values {
		rows[i] = toStrings(v)
	}

	c.genMu.Lock()
	if c.generations[tab] == gen {
		c.cache.Set(tab, rows)
	}
	c.genMu.Unlock()
	return rows, nil
}

func (c *Client) generation(tab string) uint64 {
	c.genMu.Lock()
	defer c.genMu.Unlock()
	return c.generations[tab]
}

func (c *Client) invalidate(tab string) {
	c.genMu.Lock()
	defer c.genMu.Unlock()
	c.generations[tab]++
	c.cache.Delete(tab)
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

// Ensure interface conformance
var (
	_ records.Repository[core.Account] = (*Tab[core.Account])(nil)
	_ records.Upserter[core.Goal]      = (*Tab[core.Goal])(nil)
)
