package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/checkout-backend/pkg/migrate"
)

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestProductsMigrationGuardsStock(t *testing.T) {
	content := readMigration(t, "*_create_products_table.sql")

	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS products",
		"CONSTRAINT chk_products_inventory CHECK (inventory >= 0)",
		"CREATE TABLE IF NOT EXISTS product_variants",
		"CONSTRAINT chk_product_variants_stock CHECK (stock >= 0)",
		"FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_product_variants_option",
		"DROP TABLE IF EXISTS products",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOrdersMigrationEnforcesUniqueOrderNumber(t *testing.T) {
	content := readMigration(t, "*_create_orders_table.sql")

	for _, sub := range []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_order_number ON orders (order_number)",
		"CHECK (order_number ~ '^ORD-[A-Z0-9]+-[A-Z0-9]+$')",
		"version                 integer NOT NULL DEFAULT 1",
		"CHECK (payment_card_last4 ~ '^[0-9]{4}$')",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
	for _, forbidden := range []string{"card_number", "cvv"} {
		if strings.Contains(content, forbidden) {
			t.Errorf("orders table must not store %q", forbidden)
		}
	}
}

func TestCustomersMigrationKeysOnEmail(t *testing.T) {
	content := readMigration(t, "*_create_customers_table.sql")
	if !strings.Contains(content, "CREATE UNIQUE INDEX IF NOT EXISTS ux_customers_email ON customers (email)") {
		t.Errorf("missing unique email index")
	}
}

func TestCreateSQLMigrationWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Order Notes!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_order_notes.sql") {
		t.Fatalf("unexpected file name %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %s", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
