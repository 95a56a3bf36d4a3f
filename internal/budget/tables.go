package budget

import "fmt"

// Table describes one syncable table: its local table name (which is also
// the remote collection name) and the domain columns it carries beyond the
// common id/created_at/updated_at/deleted_at set.
//
// The set of tables is closed. The sync engine and the local store only
// ever dispatch on these descriptors, never on free-form table-name
// strings.
type Table struct {
	Name    string
	Columns []string
}

func (t Table) String() string { return t.Name }

var (
	// Categories holds spending categories and their monthly limits.
	Categories = Table{
		Name:    "categories",
		Columns: []string{"name", "icon", "color", "monthly_limit"},
	}

	// Transactions holds individual income/expense entries.
	Transactions = Table{
		Name:    "transactions",
		Columns: []string{"category_id", "kind", "amount", "note", "occurred_at"},
	}

	// RecurringTransactions holds templates that materialize into
	// transactions on a schedule.
	RecurringTransactions = Table{
		Name:    "recurring_transactions",
		Columns: []string{"category_id", "kind", "amount", "note", "frequency", "next_run_at"},
	}

	// Salary holds the user's salary configuration.
	Salary = Table{
		Name:    "salary",
		Columns: []string{"amount", "pay_day"},
	}

	// Badges holds earned gamification badges and streaks.
	Badges = Table{
		Name:    "badges",
		Columns: []string{"code", "earned_at", "streak"},
	}

	// AppMeta holds free-form application key/value metadata.
	AppMeta = Table{
		Name:    "app_meta",
		Columns: []string{"key", "value"},
	}
)

// AllTables returns every syncable table in a stable order. The pull phase
// iterates this list; the order carries no semantic weight, but a stable
// order keeps logs and tests deterministic.
func AllTables() []Table {
	return []Table{Categories, Transactions, RecurringTransactions, Salary, Badges, AppMeta}
}

// TableByName resolves a table name to its descriptor. It is the only
// place a table-name string is turned back into a descriptor; unknown
// names are an error, not a dynamically built query.
func TableByName(name string) (Table, error) {
	for _, t := range AllTables() {
		if t.Name == name {
			return t, nil
		}
	}
	return Table{}, fmt.Errorf("unknown syncable table: %q", name)
}
