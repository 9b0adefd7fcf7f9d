package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"MinimartApp/app/models"
)

// ImportService runs best-effort CSV batch imports. Bad rows (or, for
// sales, bad groups) are collected in the report; the rest of the batch
// still applies.
type ImportService struct {
	*BaseService
}

// NewImportService creates a new import service.
func NewImportService(base *BaseService) *ImportService {
	return &ImportService{BaseService: base}
}

// ImportReport summarizes one batch import.
type ImportReport struct {
	Created int                     `json:"created"`
	Updated int                     `json:"updated"`
	Failed  int                     `json:"failed"`
	Errors  []models.ImportRowError `json:"errors,omitempty"`
}

// csvRow is one parsed data row with its 1-based file line.
type csvRow struct {
	line   int
	fields map[string]string
}

// parseCSV reads RFC 4180 CSV with a header row. Header names are
// lowercased and trimmed; short rows leave missing fields empty.
func parseCSV(r io.Reader) ([]csvRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	var rows []csvRow
	line := 1
	for {
		record, err := reader.Read()
		line++
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV line %d: %w", line, err)
		}
		fields := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(record) {
				fields[name] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, csvRow{line: line, fields: fields})
	}
	return rows, nil
}

// ImportProducts upserts rows by product code. Existing codes get a
// field-level overwrite where the stock column is authoritative and no
// movement is emitted; new codes are created with an initial-stock
// movement. Unknown categories are created on the fly.
func (s *ImportService) ImportProducts(r io.Reader) (*ImportReport, error) {
	rows, err := parseCSV(r)
	if err != nil {
		return nil, &models.ValidationError{Message: err.Error()}
	}

	defer s.flushRemote()
	s.mu.Lock()
	defer s.mu.Unlock()

	report := &ImportReport{}
	now := time.Now().UTC()

	for _, row := range rows {
		code := row.fields["code"]
		name := row.fields["name"]
		if code == "" || name == "" {
			report.fail(models.ImportRowError{Line: row.line, Reason: "'code' and 'name' are required"})
			continue
		}

		stock := 0
		if raw := row.fields["current_stock"]; raw != "" {
			stock, err = strconv.Atoi(raw)
			if err != nil || stock < 0 {
				report.fail(models.ImportRowError{Line: row.line, Reason: "'current_stock' must be a non-negative integer"})
				continue
			}
		}
		hpp := parseFloatOrZero(row.fields["hpp"])
		price := parseFloatOrZero(row.fields["price"])

		category := row.fields["category"]
		if category == "" {
			category = "Uncategorized"
		}
		s.ensureCategory(category)

		if existing := s.state.FindProductByCode(code); existing != nil {
			existing.Name = name
			existing.Category = category
			existing.HPP = hpp
			existing.Price = price
			existing.CurrentStock = stock
			existing.Unit = row.fields["unit"]
			existing.Description = row.fields["description"]
			existing.UpdatedAt = now

			s.gateway.Update(models.CollectionProducts, existing.ID, map[string]interface{}{
				"name":          existing.Name,
				"category":      existing.Category,
				"hpp":           existing.HPP,
				"price":         existing.Price,
				"current_stock": existing.CurrentStock,
				"unit":          existing.Unit,
				"description":   existing.Description,
				"updated_at":    existing.UpdatedAt,
			})
			report.Updated++
			continue
		}

		product := models.Product{
			ID:           uuid.NewString(),
			Code:         code,
			Name:         name,
			Category:     category,
			HPP:          hpp,
			Price:        price,
			CurrentStock: stock,
			Unit:         row.fields["unit"],
			Description:  row.fields["description"],
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		s.state.Products = append(s.state.Products, product)
		s.gateway.Create(models.CollectionProducts, product)

		if stock > 0 {
			movement := models.StockMovement{
				ID:        uuid.NewString(),
				ProductID: product.ID,
				Type:      models.MovementIn,
				Quantity:  stock,
				Date:      now,
				Note:      "initial stock from import",
			}
			s.state.StockMovements = append(s.state.StockMovements, movement)
			s.gateway.Create(models.CollectionStockMovements, movement)
		}
		report.Created++
	}

	s.saveLocalData()
	s.logReport("products", report)
	return report, nil
}

// ImportSales groups rows by sale_number into multi-item transactions.
// A group fails whole on any bad row: unknown product code, bad quantity
// or date, a status outside paid/unpaid, or aggregate demand exceeding
// current stock. There is no indent path for imports. Other groups still
// apply.
func (s *ImportService) ImportSales(r io.Reader) (*ImportReport, error) {
	rows, err := parseCSV(r)
	if err != nil {
		return nil, &models.ValidationError{Message: err.Error()}
	}

	defer s.flushRemote()
	s.mu.Lock()
	defer s.mu.Unlock()

	// group by sale number, preserving first-seen order
	var numbers []string
	groups := map[string][]csvRow{}
	report := &ImportReport{}
	for _, row := range rows {
		number := row.fields["sale_number"]
		if number == "" {
			report.fail(models.ImportRowError{Line: row.line, Reason: "'sale_number' is required"})
			continue
		}
		if _, seen := groups[number]; !seen {
			numbers = append(numbers, number)
		}
		groups[number] = append(groups[number], row)
	}

	now := time.Now().UTC()
	for _, number := range numbers {
		group := groups[number]
		sale, groupErr := s.buildImportedSale(number, group, now)
		if groupErr != nil {
			report.fail(*groupErr)
			continue
		}

		s.state.Sales = append(s.state.Sales, *sale)
		s.gateway.Create(models.CollectionSales, *sale)
		s.applyImportedDecrements(sale, now)
		report.Created++
	}

	s.saveLocalData()
	s.logReport("sales", report)
	return report, nil
}

// buildImportedSale validates one sale group. Any failure rejects the
// whole group before state is touched.
func (s *ImportService) buildImportedSale(number string, group []csvRow, now time.Time) (*models.Sale, *models.ImportRowError) {
	first := group[0].fields

	status := models.SaleStatus(strings.ToLower(first["status"]))
	if status == "" {
		status = models.SaleStatusPaid
	}
	if status != models.SaleStatusPaid && status != models.SaleStatusUnpaid {
		return nil, &models.ImportRowError{Group: number, Reason: fmt.Sprintf("status %q not allowed in imports", first["status"])}
	}

	payment := models.PaymentMethod(strings.ToLower(first["payment_method"]))
	if payment == "" {
		payment = models.PaymentCash
	}
	if status == models.SaleStatusUnpaid {
		payment = models.PaymentUnpaid
	}

	// the interchange header is camelCase saleDate (lowercased by the
	// parser); snake_case is accepted for files built from our template
	rawDate := first["saledate"]
	if rawDate == "" {
		rawDate = first["sale_date"]
	}
	saleDate, err := parseImportDate(rawDate)
	if err != nil {
		return nil, &models.ImportRowError{Group: number, Reason: "invalid 'saleDate'"}
	}
	if saleDate.IsZero() {
		saleDate = now
	}

	required := map[string]int{}
	items := make([]models.SaleItem, 0, len(group))
	total := 0.0
	for _, row := range group {
		code := row.fields["product_code"]
		product := s.state.FindProductByCode(code)
		if product == nil {
			return nil, &models.ImportRowError{Group: number, Reason: fmt.Sprintf("unknown product code %q", code)}
		}
		quantity, err := strconv.Atoi(row.fields["quantity"])
		if err != nil || quantity <= 0 {
			return nil, &models.ImportRowError{Group: number, Reason: "'quantity' must be a positive integer"}
		}
		price := product.Price
		if raw := row.fields["price_at_sale"]; raw != "" {
			price = parseFloatOrZero(raw)
		}

		required[product.ID] += quantity
		if required[product.ID] > product.CurrentStock {
			return nil, &models.ImportRowError{Group: number, Reason: fmt.Sprintf(
				"insufficient stock for %s: requested %d, available %d",
				product.Name, required[product.ID], product.CurrentStock)}
		}

		item := models.SaleItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    quantity,
			PriceAtSale: price,
			Total:       price * float64(quantity),
		}
		items = append(items, item)
		total += item.Total
	}

	return &models.Sale{
		ID:            uuid.NewString(),
		SaleNumber:    number,
		CustomerName:  first["customer_name"],
		SaleDate:      saleDate,
		PaymentMethod: payment,
		Status:        status,
		Items:         items,
		TotalAmount:   total,
		CreatedAt:     now,
	}, nil
}

func (s *ImportService) applyImportedDecrements(sale *models.Sale, now time.Time) {
	for _, item := range sale.Items {
		product := s.state.FindProduct(item.ProductID)
		if product == nil {
			continue
		}
		product.CurrentStock -= item.Quantity
		product.UpdatedAt = now

		movement := models.StockMovement{
			ID:                uuid.NewString(),
			ProductID:         product.ID,
			Type:              models.MovementOut,
			Quantity:          item.Quantity,
			Date:              sale.SaleDate,
			Note:              "sale import - " + sale.SaleNumber,
			OriginatingSaleID: sale.ID,
		}
		s.state.StockMovements = append(s.state.StockMovements, movement)

		s.gateway.Update(models.CollectionProducts, product.ID, map[string]interface{}{
			"current_stock": product.CurrentStock,
			"updated_at":    product.UpdatedAt,
		})
		s.gateway.Create(models.CollectionStockMovements, movement)
	}
}

// ImportStockMovements applies in/out rows by product code. Out rows are
// checked against current stock; each row stands alone.
func (s *ImportService) ImportStockMovements(r io.Reader) (*ImportReport, error) {
	rows, err := parseCSV(r)
	if err != nil {
		return nil, &models.ValidationError{Message: err.Error()}
	}

	defer s.flushRemote()
	s.mu.Lock()
	defer s.mu.Unlock()

	report := &ImportReport{}
	now := time.Now().UTC()

	for _, row := range rows {
		code := row.fields["product_code"]
		rawType := strings.ToLower(row.fields["type"])
		rawQty := row.fields["quantity"]
		if code == "" || rawType == "" || rawQty == "" {
			report.fail(models.ImportRowError{Line: row.line, Reason: "'product_code', 'type' and 'quantity' are required"})
			continue
		}

		product := s.state.FindProductByCode(code)
		if product == nil {
			report.fail(models.ImportRowError{Line: row.line, Reason: fmt.Sprintf("unknown product code %q", code)})
			continue
		}

		movementType := models.MovementType(rawType)
		if movementType != models.MovementIn && movementType != models.MovementOut {
			report.fail(models.ImportRowError{Line: row.line, Reason: "'type' must be 'in' or 'out'"})
			continue
		}

		quantity, err := strconv.Atoi(rawQty)
		if err != nil || quantity <= 0 {
			report.fail(models.ImportRowError{Line: row.line, Reason: "'quantity' must be a positive integer"})
			continue
		}

		if movementType == models.MovementOut && product.CurrentStock < quantity {
			report.fail(models.ImportRowError{Line: row.line, Reason: fmt.Sprintf(
				"insufficient stock for %s: requested %d, available %d",
				product.Name, quantity, product.CurrentStock)})
			continue
		}

		date, err := parseImportDate(row.fields["date"])
		if err != nil {
			report.fail(models.ImportRowError{Line: row.line, Reason: "invalid 'date'"})
			continue
		}
		if date.IsZero() {
			date = now
		}

		if movementType == models.MovementIn {
			product.CurrentStock += quantity
		} else {
			product.CurrentStock -= quantity
		}
		product.UpdatedAt = now

		note := row.fields["note"]
		if note == "" {
			note = "imported movement"
		}
		movement := models.StockMovement{
			ID:        uuid.NewString(),
			ProductID: product.ID,
			Type:      movementType,
			Quantity:  quantity,
			Date:      date,
			Note:      note,
		}
		s.state.StockMovements = append(s.state.StockMovements, movement)

		s.gateway.Update(models.CollectionProducts, product.ID, map[string]interface{}{
			"current_stock": product.CurrentStock,
			"updated_at":    product.UpdatedAt,
		})
		s.gateway.Create(models.CollectionStockMovements, movement)
		report.Created++
	}

	s.saveLocalData()
	s.logReport("stock movements", report)
	return report, nil
}

// ImportCategories adds categories by name, skipping duplicates.
func (s *ImportService) ImportCategories(r io.Reader) (*ImportReport, error) {
	rows, err := parseCSV(r)
	if err != nil {
		return nil, &models.ValidationError{Message: err.Error()}
	}

	defer s.flushRemote()
	s.mu.Lock()
	defer s.mu.Unlock()

	report := &ImportReport{}
	for _, row := range rows {
		name := row.fields["name"]
		if name == "" {
			report.fail(models.ImportRowError{Line: row.line, Reason: "'name' is required"})
			continue
		}
		if s.state.HasCategory(name) {
			report.Updated++
			continue
		}
		s.ensureCategory(name)
		report.Created++
	}

	s.saveLocalData()
	s.logReport("categories", report)
	return report, nil
}

// ensureCategory creates a category on the fly during imports. Caller
// holds the lock.
func (s *ImportService) ensureCategory(name string) {
	if s.state.HasCategory(name) {
		return
	}
	category := models.Category{Name: name}
	s.state.Categories = append(s.state.Categories, category)
	s.gateway.Create(models.CollectionCategories, category)
}

func (s *ImportService) logReport(kind string, report *ImportReport) {
	s.log.WithFields(map[string]interface{}{
		"kind":    kind,
		"created": report.Created,
		"updated": report.Updated,
		"failed":  report.Failed,
	}).Info("import finished")
}

func (r *ImportReport) fail(rowErr models.ImportRowError) {
	r.Failed++
	r.Errors = append(r.Errors, rowErr)
}

func parseFloatOrZero(raw string) float64 {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}

// parseImportDate accepts RFC 3339 timestamps or plain dates. An empty
// value parses to the zero time with no error.
func parseImportDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}
