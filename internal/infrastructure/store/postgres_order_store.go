package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/example/marketplace-orders/internal/domain/order"
)

const orderColumns = `
	id, business_id, user_id, delivery_company_id, status, origin, is_test,
	total, total_delivery_cost,
	customer_name, customer_phone, customer_address, customer_latitude, customer_longitude,
	business_name, business_phone, business_address, business_latitude, business_longitude,
	order_payment_method, payment_status, cadet_payment_payer, cadet_payment_method,
	payment_receipt_url, payment_instructions, payment_holder_name,
	payment_expected, payment_received, delivery_type, notes, created_at, updated_at`

// PostgresOrderStore implements OrderStore using PostgreSQL
type PostgresOrderStore struct {
	db *sql.DB
}

// NewPostgresOrderStore creates a new PostgreSQL-based order store
func NewPostgresOrderStore(db *sql.DB) *PostgresOrderStore {
	return &PostgresOrderStore{db: db}
}

// WithinTx runs fn in a transaction and commits when it returns nil.
func (s *PostgresOrderStore) WithinTx(ctx context.Context, fn func(uow UnitOfWork) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&pgUnitOfWork{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresOrderStore) Get(ctx context.Context, id string) (*order.Order, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := loadTrees(ctx, s.db, []*order.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *PostgresOrderStore) List(ctx context.Context, filter OrderFilter) ([]*order.Order, error) {
	query, args := buildListQuery(filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]*order.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	if err := loadTrees(ctx, s.db, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func buildListQuery(f OrderFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(f.BusinessIDs) > 0 {
		where = append(where, "business_id = ANY("+arg(pq.Array(f.BusinessIDs))+")")
	}
	if f.UserID != "" {
		where = append(where, "user_id = "+arg(f.UserID))
	}
	if f.DeliveryCompanyID != "" {
		where = append(where, "delivery_company_id = "+arg(f.DeliveryCompanyID))
	}
	if !f.CreatedFrom.IsZero() {
		where = append(where, "created_at >= "+arg(f.CreatedFrom))
	}
	if !f.ChangedAfter.IsZero() {
		p := arg(f.ChangedAfter)
		where = append(where, "(created_at > "+p+" OR updated_at > "+p+")")
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			statuses[i] = string(st)
		}
		where = append(where, "status = ANY("+arg(pq.Array(statuses))+")")
	}
	if f.AttentionOnly {
		where = append(where, fmt.Sprintf("(order_payment_method = %s OR (order_payment_method = %s AND payment_status <> %s))",
			arg(string(order.MethodCash)), arg(string(order.MethodTransfer)), arg(string(order.PaymentPending))))
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if f.Sort == SortUpdatedDesc {
		query += " ORDER BY updated_at DESC, created_at DESC"
	} else {
		query += " ORDER BY created_at DESC"
	}
	return query, args
}

// Update locks the order row, applies fn and writes the result back.
func (s *PostgresOrderStore) Update(ctx context.Context, id string, fn func(o *order.Order) error) (*order.Order, error) {
	err := s.WithinTx(ctx, func(uow UnitOfWork) error {
		q := uow.(*pgUnitOfWork).q

		o, err := scanOrder(q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if err := fn(o); err != nil {
			return err
		}

		expected, received, err := marshalLedgers(o)
		if err != nil {
			return err
		}
		_, err = q.ExecContext(ctx, `
			UPDATE orders SET
				delivery_company_id = $2, status = $3, is_test = $4, total_delivery_cost = $5,
				customer_address = $6, customer_latitude = $7, customer_longitude = $8,
				order_payment_method = $9, payment_status = $10,
				cadet_payment_payer = $11, cadet_payment_method = $12,
				payment_receipt_url = $13, payment_instructions = $14, payment_holder_name = $15,
				payment_expected = $16, payment_received = $17,
				delivery_type = $18, notes = $19, updated_at = $20
			WHERE id = $1
		`,
			id, nullString(o.DeliveryCompanyID), string(o.Status), o.IsTest, o.TotalDeliveryCost,
			o.Customer.Address, o.Customer.Latitude, o.Customer.Longitude,
			string(o.PaymentMethod), string(o.PaymentStatus),
			string(o.CadetPaymentPayer), nullString(string(o.CadetPaymentMethod)),
			nullString(o.PaymentReceiptURL), nullString(o.PaymentInstructions), nullString(o.PaymentHolderName),
			expected, received,
			string(o.DeliveryType), o.Notes, o.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *PostgresOrderStore) AddDiscount(ctx context.Context, orderID string, d *order.Discount) error {
	return s.WithinTx(ctx, func(uow UnitOfWork) error {
		q := uow.(*pgUnitOfWork).q

		if d.CreatedAt.IsZero() {
			d.CreatedAt = time.Now().UTC()
		}
		res, err := q.ExecContext(ctx, `UPDATE orders SET updated_at = $2 WHERE id = $1`, orderID, d.CreatedAt)
		if err != nil {
			return fmt.Errorf("touch order: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s", order.ErrOrderNotFound, orderID)
		}

		d.ID = uuid.NewString()
		d.OrderID = orderID
		_, err = q.ExecContext(ctx, `
			INSERT INTO order_discounts (id, order_id, amount, discount_type, notes, absorbed_by, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, d.ID, d.OrderID, d.Amount, string(d.Type), d.Notes, nullString(string(d.AbsorbedBy)), d.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert discount: %w", err)
		}
		return nil
	})
}

func (s *PostgresOrderStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", order.ErrOrderNotFound, id)
	}
	return nil
}

// pgUnitOfWork writes the order tree through an open transaction.
type pgUnitOfWork struct {
	q querier
}

func (u *pgUnitOfWork) InsertOrder(ctx context.Context, o *order.Order) (string, error) {
	o.ID = uuid.NewString()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = o.CreatedAt
	}

	expected, received, err := marshalLedgers(o)
	if err != nil {
		return "", err
	}

	_, err = u.q.ExecContext(ctx, `INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
		        $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32)`,
		o.ID, o.BusinessID, o.UserID, nullString(o.DeliveryCompanyID), string(o.Status), string(o.Origin), o.IsTest,
		o.Total, o.TotalDeliveryCost,
		o.Customer.Name, o.Customer.Phone, o.Customer.Address, o.Customer.Latitude, o.Customer.Longitude,
		o.Business.Name, o.Business.Phone, o.Business.Address, o.Business.Latitude, o.Business.Longitude,
		string(o.PaymentMethod), string(o.PaymentStatus), string(o.CadetPaymentPayer), nullString(string(o.CadetPaymentMethod)),
		nullString(o.PaymentReceiptURL), nullString(o.PaymentInstructions), nullString(o.PaymentHolderName),
		expected, received, string(o.DeliveryType), o.Notes, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert order: %w", err)
	}
	return o.ID, nil
}

func (u *pgUnitOfWork) InsertItem(ctx context.Context, orderID string, item *order.Item, position int) (string, error) {
	item.ID = uuid.NewString()
	item.OrderID = orderID
	_, err := u.q.ExecContext(ctx, `
		INSERT INTO order_items (id, order_id, position, menu_product_id, product_name,
			product_description, product_image, quantity, price_at_purchase, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, item.ID, orderID, position, item.MenuProductID, item.ProductName,
		item.ProductDescription, item.ProductImage, item.Quantity, item.PriceAtPurchase, item.Notes)
	if err != nil {
		return "", fmt.Errorf("insert order item: %w", err)
	}
	return item.ID, nil
}

func (u *pgUnitOfWork) InsertOptionGroup(ctx context.Context, itemID string, group *order.OptionGroup, position int) (string, error) {
	group.ID = uuid.NewString()
	group.OrderItemID = itemID
	_, err := u.q.ExecContext(ctx, `
		INSERT INTO order_option_groups (id, order_item_id, position, group_name,
			min_quantity, max_quantity, quantity_type, catalog_group_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, group.ID, itemID, position, group.GroupName,
		group.MinQuantity, group.MaxQuantity, string(group.QuantityType), nullString(group.CatalogGroupID))
	if err != nil {
		return "", fmt.Errorf("insert option group: %w", err)
	}
	return group.ID, nil
}

func (u *pgUnitOfWork) InsertOption(ctx context.Context, groupID string, opt *order.Option, position int) (string, error) {
	opt.ID = uuid.NewString()
	opt.OptionGroupID = groupID
	_, err := u.q.ExecContext(ctx, `
		INSERT INTO order_options (id, order_option_group_id, position, option_name, price_modifier_type,
			quantity, price_final, price_without_taxes, taxes_amount, catalog_option_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, opt.ID, groupID, position, opt.OptionName, string(opt.PriceModifierType),
		opt.Quantity, opt.PriceFinal, opt.PriceWithoutTaxes, opt.TaxesAmount, nullString(opt.CatalogOptionID))
	if err != nil {
		return "", fmt.Errorf("insert option: %w", err)
	}
	return opt.ID, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*order.Order, error) {
	var (
		o                                        order.Order
		deliveryCompany, cadetMethod             sql.NullString
		receiptURL, instructions, holderName     sql.NullString
		status, origin, method, payStatus, payer string
		deliveryType                             string
		expected, received                       []byte
	)
	err := row.Scan(
		&o.ID, &o.BusinessID, &o.UserID, &deliveryCompany, &status, &origin, &o.IsTest,
		&o.Total, &o.TotalDeliveryCost,
		&o.Customer.Name, &o.Customer.Phone, &o.Customer.Address, &o.Customer.Latitude, &o.Customer.Longitude,
		&o.Business.Name, &o.Business.Phone, &o.Business.Address, &o.Business.Latitude, &o.Business.Longitude,
		&method, &payStatus, &payer, &cadetMethod,
		&receiptURL, &instructions, &holderName,
		&expected, &received, &deliveryType, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}

	o.DeliveryCompanyID = deliveryCompany.String
	o.Status = order.Status(status)
	o.Origin = order.Origin(origin)
	o.PaymentMethod = order.PaymentMethod(method)
	o.PaymentStatus = order.PaymentStatus(payStatus)
	o.CadetPaymentPayer = order.Payer(payer)
	o.CadetPaymentMethod = order.PaymentMethod(cadetMethod.String)
	o.PaymentReceiptURL = receiptURL.String
	o.PaymentInstructions = instructions.String
	o.PaymentHolderName = holderName.String
	o.DeliveryType = order.DeliveryType(deliveryType)

	if err := json.Unmarshal(expected, &o.PaymentExpected); err != nil {
		return nil, fmt.Errorf("decode payment_expected: %w", err)
	}
	if err := json.Unmarshal(received, &o.PaymentReceived); err != nil {
		return nil, fmt.Errorf("decode payment_received: %w", err)
	}
	o.Items = []order.Item{}
	o.Discounts = []order.Discount{}
	return &o, nil
}

func marshalLedgers(o *order.Order) ([]byte, []byte, error) {
	expected, err := json.Marshal(o.PaymentExpected)
	if err != nil {
		return nil, nil, fmt.Errorf("encode payment_expected: %w", err)
	}
	received, err := json.Marshal(o.PaymentReceived)
	if err != nil {
		return nil, nil, fmt.Errorf("encode payment_received: %w", err)
	}
	return expected, received, nil
}

// loadTrees attaches items, option groups, options and discounts to the
// given orders with one query per level.
func loadTrees(ctx context.Context, q querier, orders []*order.Order) error {
	if len(orders) == 0 {
		return nil
	}
	orderIDs := make([]string, len(orders))
	for i, o := range orders {
		orderIDs[i] = o.ID
	}

	items, err := loadItems(ctx, q, orderIDs)
	if err != nil {
		return err
	}
	itemIDs := make([]string, len(items))
	for i := range items {
		itemIDs[i] = items[i].ID
	}

	groups, err := loadOptionGroups(ctx, q, itemIDs)
	if err != nil {
		return err
	}
	groupIDs := make([]string, len(groups))
	for i := range groups {
		groupIDs[i] = groups[i].ID
	}

	options, err := loadOptions(ctx, q, groupIDs)
	if err != nil {
		return err
	}
	discounts, err := loadDiscounts(ctx, q, orderIDs)
	if err != nil {
		return err
	}

	optionsByGroup := make(map[string][]order.Option)
	for _, opt := range options {
		optionsByGroup[opt.OptionGroupID] = append(optionsByGroup[opt.OptionGroupID], opt)
	}
	groupsByItem := make(map[string][]order.OptionGroup)
	for _, g := range groups {
		g.Options = optionsByGroup[g.ID]
		if g.Options == nil {
			g.Options = []order.Option{}
		}
		groupsByItem[g.OrderItemID] = append(groupsByItem[g.OrderItemID], g)
	}
	itemsByOrder := make(map[string][]order.Item)
	for _, item := range items {
		item.OptionGroups = groupsByItem[item.ID]
		if item.OptionGroups == nil {
			item.OptionGroups = []order.OptionGroup{}
		}
		itemsByOrder[item.OrderID] = append(itemsByOrder[item.OrderID], item)
	}
	discountsByOrder := make(map[string][]order.Discount)
	for _, d := range discounts {
		discountsByOrder[d.OrderID] = append(discountsByOrder[d.OrderID], d)
	}

	for _, o := range orders {
		if items, ok := itemsByOrder[o.ID]; ok {
			o.Items = items
		}
		if discounts, ok := discountsByOrder[o.ID]; ok {
			o.Discounts = discounts
		}
	}
	return nil
}

func loadItems(ctx context.Context, q querier, orderIDs []string) ([]order.Item, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, order_id, menu_product_id, product_name, product_description, product_image,
			quantity, price_at_purchase, notes
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	var items []order.Item
	for rows.Next() {
		var it order.Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.MenuProductID, &it.ProductName, &it.ProductDescription,
			&it.ProductImage, &it.Quantity, &it.PriceAtPurchase, &it.Notes); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func loadOptionGroups(ctx context.Context, q querier, itemIDs []string) ([]order.OptionGroup, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	rows, err := q.QueryContext(ctx, `
		SELECT id, order_item_id, group_name, min_quantity, max_quantity, quantity_type, catalog_group_id
		FROM order_option_groups
		WHERE order_item_id = ANY($1)
		ORDER BY order_item_id, position
	`, pq.Array(itemIDs))
	if err != nil {
		return nil, fmt.Errorf("query option groups: %w", err)
	}
	defer rows.Close()

	var groups []order.OptionGroup
	for rows.Next() {
		var (
			g            order.OptionGroup
			quantityType string
			catalogID    sql.NullString
		)
		if err := rows.Scan(&g.ID, &g.OrderItemID, &g.GroupName, &g.MinQuantity, &g.MaxQuantity,
			&quantityType, &catalogID); err != nil {
			return nil, fmt.Errorf("scan option group: %w", err)
		}
		g.QuantityType = order.QuantityType(quantityType)
		g.CatalogGroupID = catalogID.String
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func loadOptions(ctx context.Context, q querier, groupIDs []string) ([]order.Option, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	rows, err := q.QueryContext(ctx, `
		SELECT id, order_option_group_id, option_name, price_modifier_type, quantity,
			price_final, price_without_taxes, taxes_amount, catalog_option_id
		FROM order_options
		WHERE order_option_group_id = ANY($1)
		ORDER BY order_option_group_id, position
	`, pq.Array(groupIDs))
	if err != nil {
		return nil, fmt.Errorf("query options: %w", err)
	}
	defer rows.Close()

	var options []order.Option
	for rows.Next() {
		var (
			opt       order.Option
			modifier  string
			catalogID sql.NullString
		)
		if err := rows.Scan(&opt.ID, &opt.OptionGroupID, &opt.OptionName, &modifier, &opt.Quantity,
			&opt.PriceFinal, &opt.PriceWithoutTaxes, &opt.TaxesAmount, &catalogID); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		opt.PriceModifierType = order.PriceModifierType(modifier)
		opt.CatalogOptionID = catalogID.String
		options = append(options, opt)
	}
	return options, rows.Err()
}

func loadDiscounts(ctx context.Context, q querier, orderIDs []string) ([]order.Discount, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, order_id, amount, discount_type, notes, absorbed_by, created_at
		FROM order_discounts
		WHERE order_id = ANY($1)
		ORDER BY order_id, created_at, id
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, fmt.Errorf("query discounts: %w", err)
	}
	defer rows.Close()

	var discounts []order.Discount
	for rows.Next() {
		var (
			d            order.Discount
			discountType string
			absorbedBy   sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.OrderID, &d.Amount, &discountType, &d.Notes, &absorbedBy, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan discount: %w", err)
		}
		d.Type = order.DiscountType(discountType)
		d.AbsorbedBy = order.Party(absorbedBy.String)
		discounts = append(discounts, d)
	}
	return discounts, rows.Err()
}
