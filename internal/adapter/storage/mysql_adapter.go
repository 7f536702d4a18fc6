package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/aaronpeter20/InventoryManagementSystem/internal/core/domain"
	"github.com/aaronpeter20/InventoryManagementSystem/internal/port"
)

const mysqlDuplicateEntry = 1062

//go:embed schema.sql
var schemaSQL string

var _ port.DatabaseRepository = (*MySQLAdapter)(nil)

// MySQLAdapter stores the ledger in MySQL. The DSN must set parseTime=true.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// Migrate creates any missing tables. It is safe to run on every start.
func (m *MySQLAdapter) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

const itemColumns = `id, name, description, quantity, price, supplier_id, created_at, updated_at`

func scanItem(row rowScanner) (*domain.Item, error) {
	var item domain.Item
	var supplierID sql.NullString
	err := row.Scan(&item.ID, &item.Name, &item.Description, &item.Quantity, &item.Price,
		&supplierID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	item.SupplierID = supplierID.String
	return &item, nil
}

func (m *MySQLAdapter) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	item, err := scanItem(m.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query item: %w", err)
	}
	return item, nil
}

func (m *MySQLAdapter) ListItems(ctx context.Context) ([]domain.Item, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM items ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := []domain.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (m *MySQLAdapter) CreateItem(ctx context.Context, item domain.Item) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO items (id, name, description, quantity, price, supplier_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, item.Description, item.Quantity, item.Price,
		nullString(item.SupplierID), item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", mapMySQLErr(err))
	}
	return nil
}

func (m *MySQLAdapter) UpdateItem(ctx context.Context, item domain.Item) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE items
		SET name = ?, description = ?, quantity = ?, price = ?, supplier_id = ?, updated_at = ?
		WHERE id = ?`,
		item.Name, item.Description, item.Quantity, item.Price,
		nullString(item.SupplierID), item.UpdatedAt, item.ID,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return m.requireRow(ctx, result, "items", item.ID)
}

func (m *MySQLAdapter) DeleteItem(ctx context.Context, id string) error {
	return m.deleteByID(ctx, "items", id)
}

const supplierColumns = `id, name, contact, email, address, created_at, updated_at`

func scanSupplier(row rowScanner) (*domain.Supplier, error) {
	var s domain.Supplier
	if err := row.Scan(&s.ID, &s.Name, &s.Contact, &s.Email, &s.Address, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (m *MySQLAdapter) GetSupplier(ctx context.Context, id string) (*domain.Supplier, error) {
	s, err := scanSupplier(m.db.QueryRowContext(ctx,
		`SELECT `+supplierColumns+` FROM suppliers WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query supplier: %w", err)
	}
	return s, nil
}

func (m *MySQLAdapter) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT `+supplierColumns+` FROM suppliers ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query suppliers: %w", err)
	}
	defer rows.Close()

	suppliers := []domain.Supplier{}
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, fmt.Errorf("scan supplier: %w", err)
		}
		suppliers = append(suppliers, *s)
	}
	return suppliers, rows.Err()
}

func (m *MySQLAdapter) CreateSupplier(ctx context.Context, s domain.Supplier) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO suppliers (id, name, contact, email, address, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Name, s.Contact, s.Email, s.Address, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert supplier: %w", mapMySQLErr(err))
	}
	return nil
}

func (m *MySQLAdapter) UpdateSupplier(ctx context.Context, s domain.Supplier) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE suppliers SET name = ?, contact = ?, email = ?, address = ?, updated_at = ?
		WHERE id = ?`,
		s.Name, s.Contact, s.Email, s.Address, s.UpdatedAt, s.ID,
	)
	if err != nil {
		return fmt.Errorf("update supplier: %w", err)
	}
	return m.requireRow(ctx, result, "suppliers", s.ID)
}

func (m *MySQLAdapter) DeleteSupplier(ctx context.Context, id string) error {
	return m.deleteByID(ctx, "suppliers", id)
}

const userColumns = `id, name, email, password_hash, role, created_at, updated_at`

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (m *MySQLAdapter) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return m.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (m *MySQLAdapter) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return m.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (m *MySQLAdapter) getUser(ctx context.Context, query string, arg string) (*domain.User, error) {
	u, err := scanUser(m.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}

func (m *MySQLAdapter) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (m *MySQLAdapter) CreateUser(ctx context.Context, u domain.User) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", mapMySQLErr(err))
	}
	return nil
}

func (m *MySQLAdapter) UpdateUser(ctx context.Context, u domain.User) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE users SET name = ?, email = ?, password_hash = ?, role = ?, updated_at = ?
		WHERE id = ?`,
		u.Name, u.Email, u.PasswordHash, u.Role, u.UpdatedAt, u.ID,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", mapMySQLErr(err))
	}
	return m.requireRow(ctx, result, "users", u.ID)
}

func (m *MySQLAdapter) DeleteUser(ctx context.Context, id string) error {
	return m.deleteByID(ctx, "users", id)
}

const orderColumns = `id, item_id, quantity, employee_id, status, created_at`

func scanOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	if err := row.Scan(&o.ID, &o.ItemID, &o.Quantity, &o.EmployeeID, &o.Status, &o.CreatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

func (m *MySQLAdapter) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	o, err := scanOrder(m.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	return o, nil
}

func (m *MySQLAdapter) ListOrders(ctx context.Context) ([]domain.Order, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func (m *MySQLAdapter) CreateOrder(ctx context.Context, order domain.Order) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO orders (id, item_id, quantity, employee_id, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		order.ID, order.ItemID, order.Quantity, order.EmployeeID, order.Status, order.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", mapMySQLErr(err))
	}
	return nil
}

func (m *MySQLAdapter) DeleteOrder(ctx context.Context, id string) error {
	return m.deleteByID(ctx, "orders", id)
}

func (m *MySQLAdapter) RejectOrder(ctx context.Context, orderID string) error {
	result, err := m.db.ExecContext(ctx,
		`UPDATE orders SET status = ? WHERE id = ? AND status = ?`,
		domain.OrderStatusRejected, orderID, domain.OrderStatusPending,
	)
	if err != nil {
		return fmt.Errorf("reject order: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return statusMiss(ctx, m.db, "orders", orderID)
	}
	return nil
}

// ApproveOrder locks the item row, flips the order from pending to approved
// and takes the stock, all in one transaction. Either conditional write
// matching no row rolls the whole thing back.
func (m *MySQLAdapter) ApproveOrder(ctx context.Context, order domain.Order) (*domain.Item, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := lockItemRow(ctx, tx, order.ItemID); err != nil {
		return nil, err
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = ? WHERE id = ? AND status = ?`,
		domain.OrderStatusApproved, order.ID, domain.OrderStatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return nil, statusMiss(ctx, tx, "orders", order.ID)
	}

	result, err = tx.ExecContext(ctx, `
		UPDATE items
		SET quantity = quantity - ?, updated_at = NOW(6)
		WHERE id = ? AND quantity >= ?`,
		order.Quantity, order.ItemID, order.Quantity,
	)
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return nil, port.ErrStockConflict
	}

	item, err := scanItem(tx.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, order.ItemID))
	if err != nil {
		return nil, fmt.Errorf("reload item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return item, nil
}

const replenishmentColumns = `id, item_id, quantity, supplier_id, requested_by, status, created_at`

func scanReplenishment(row rowScanner) (*domain.Replenishment, error) {
	var r domain.Replenishment
	if err := row.Scan(&r.ID, &r.ItemID, &r.Quantity, &r.SupplierID, &r.RequestedBy, &r.Status, &r.CreatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (m *MySQLAdapter) GetReplenishment(ctx context.Context, id string) (*domain.Replenishment, error) {
	r, err := scanReplenishment(m.db.QueryRowContext(ctx,
		`SELECT `+replenishmentColumns+` FROM replenishments WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query replenishment: %w", err)
	}
	return r, nil
}

func (m *MySQLAdapter) ListReplenishments(ctx context.Context) ([]domain.Replenishment, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT `+replenishmentColumns+` FROM replenishments ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query replenishments: %w", err)
	}
	defer rows.Close()

	list := []domain.Replenishment{}
	for rows.Next() {
		r, err := scanReplenishment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan replenishment: %w", err)
		}
		list = append(list, *r)
	}
	return list, rows.Err()
}

func (m *MySQLAdapter) CreateReplenishment(ctx context.Context, r domain.Replenishment) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO replenishments (id, item_id, quantity, supplier_id, requested_by, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ItemID, r.Quantity, r.SupplierID, r.RequestedBy, r.Status, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert replenishment: %w", mapMySQLErr(err))
	}
	return nil
}

func (m *MySQLAdapter) ApproveReplenishment(ctx context.Context, r domain.Replenishment) (*domain.Item, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := lockItemRow(ctx, tx, r.ItemID); err != nil {
		return nil, err
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE replenishments SET status = ? WHERE id = ? AND status = ?`,
		domain.ReplenishmentStatusApproved, r.ID, domain.ReplenishmentStatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("update replenishment: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return nil, statusMiss(ctx, tx, "replenishments", r.ID)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE items SET quantity = quantity + ?, updated_at = NOW(6) WHERE id = ?`,
		r.Quantity, r.ItemID,
	); err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}

	item, err := scanItem(tx.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, r.ItemID))
	if err != nil {
		return nil, fmt.Errorf("reload item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return item, nil
}

func (m *MySQLAdapter) MarkReplenishmentPaid(ctx context.Context, id string, from ...domain.ReplenishmentStatus) error {
	if len(from) == 0 {
		return port.ErrStatusConflict
	}
	args := []any{domain.ReplenishmentStatusPaid, id}
	for _, s := range from {
		args = append(args, s)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(from)), ", ")

	result, err := m.db.ExecContext(ctx,
		`UPDATE replenishments SET status = ? WHERE id = ? AND status IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("update replenishment: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		existing, err := m.GetReplenishment(ctx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return port.ErrRecordNotFound
		}
		return port.ErrStatusConflict
	}
	return nil
}

func (m *MySQLAdapter) CountRecords(ctx context.Context) (domain.Metrics, error) {
	var metrics domain.Metrics
	err := m.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM items),
			(SELECT COUNT(*) FROM suppliers),
			(SELECT COUNT(*) FROM orders)`,
	).Scan(&metrics.InventoryCount, &metrics.SupplierCount, &metrics.OrderCount)
	if err != nil {
		return domain.Metrics{}, fmt.Errorf("count records: %w", err)
	}
	return metrics, nil
}

func lockItemRow(ctx context.Context, tx *sql.Tx, itemID string) error {
	var quantity int
	err := tx.QueryRowContext(ctx, `SELECT quantity FROM items WHERE id = ? FOR UPDATE`, itemID).Scan(&quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return port.ErrRecordNotFound
	}
	if err != nil {
		return fmt.Errorf("lock item: %w", err)
	}
	return nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// statusMiss explains a conditional status update that matched no row:
// ErrRecordNotFound if the row is gone, ErrStatusConflict if it moved on.
// table only ever comes from this file.
func statusMiss(ctx context.Context, q queryRower, table, id string) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return port.ErrRecordNotFound
	}
	if err != nil {
		return fmt.Errorf("check %s: %w", table, err)
	}
	return port.ErrStatusConflict
}

// deleteByID only ever receives table names from this file.
func (m *MySQLAdapter) deleteByID(ctx context.Context, table, id string) error {
	result, err := m.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return port.ErrRecordNotFound
	}
	return nil
}

// requireRow tells "no such row" apart from "row unchanged": MySQL reports
// zero affected rows for an UPDATE that writes identical values.
func (m *MySQLAdapter) requireRow(ctx context.Context, result sql.Result, table, id string) error {
	if rows, _ := result.RowsAffected(); rows > 0 {
		return nil
	}
	var exists int
	err := m.db.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return port.ErrRecordNotFound
	}
	if err != nil {
		return fmt.Errorf("query %s: %w", table, err)
	}
	return nil
}

func mapMySQLErr(err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return fmt.Errorf("%w: %s", port.ErrDuplicateKey, myErr.Message)
	}
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
