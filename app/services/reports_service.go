package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"MinimartApp/app/models"
)

// ReportsService writes Excel reports and CSV import templates.
type ReportsService struct {
	*BaseService
	stock *StockService
	sales *SalesService
}

// NewReportsService creates a new reports service.
func NewReportsService(base *BaseService, stock *StockService, sales *SalesService) *ReportsService {
	return &ReportsService{BaseService: base, stock: stock, sales: sales}
}

const reportSheet = "Sheet1"

// ExportProductsXLSX writes the product list report to w.
func (s *ReportsService) ExportProductsXLSX(w io.Writer) error {
	s.mu.Lock()
	products := make([]models.Product, len(s.state.Products))
	copy(products, s.state.Products)
	s.mu.Unlock()

	f := excelize.NewFile()
	defer f.Close()

	headers := []string{"Code", "Name", "Category", "HPP", "Price", "Stock", "Unit", "Description"}
	col := 'A'
	for _, h := range headers {
		f.SetCellValue(reportSheet, string(col)+"1", h)
		col++
	}

	for i, p := range products {
		row := fmt.Sprint(i + 2)
		f.SetCellValue(reportSheet, "A"+row, p.Code)
		f.SetCellValue(reportSheet, "B"+row, p.Name)
		f.SetCellValue(reportSheet, "C"+row, p.Category)
		f.SetCellValue(reportSheet, "D"+row, p.HPP)
		f.SetCellValue(reportSheet, "E"+row, p.Price)
		f.SetCellValue(reportSheet, "F"+row, p.CurrentStock)
		f.SetCellValue(reportSheet, "G"+row, p.Unit)
		f.SetCellValue(reportSheet, "H"+row, p.Description)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write products report: %w", err)
	}
	return nil
}

// ExportSalesXLSX writes one row per sale item for sales inside
// [from, to] to w. Zero bounds are open.
func (s *ReportsService) ExportSalesXLSX(w io.Writer, from, to time.Time) error {
	sales := s.sales.SalesBetween(from, to)

	f := excelize.NewFile()
	defer f.Close()

	headers := []string{"Sale Number", "Date", "Customer", "Status", "Payment", "Product", "Quantity", "Price", "Total"}
	col := 'A'
	for _, h := range headers {
		f.SetCellValue(reportSheet, string(col)+"1", h)
		col++
	}

	rowNo := 2
	for _, sale := range sales {
		for _, item := range sale.Items {
			row := fmt.Sprint(rowNo)
			f.SetCellValue(reportSheet, "A"+row, sale.SaleNumber)
			f.SetCellValue(reportSheet, "B"+row, sale.SaleDate.Format("2006-01-02"))
			f.SetCellValue(reportSheet, "C"+row, sale.CustomerName)
			f.SetCellValue(reportSheet, "D"+row, string(sale.Status))
			f.SetCellValue(reportSheet, "E"+row, string(sale.PaymentMethod))
			f.SetCellValue(reportSheet, "F"+row, item.ProductName)
			f.SetCellValue(reportSheet, "G"+row, item.Quantity)
			f.SetCellValue(reportSheet, "H"+row, item.PriceAtSale)
			f.SetCellValue(reportSheet, "I"+row, item.Total)
			rowNo++
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write sales report: %w", err)
	}
	return nil
}

// ExportStockCardXLSX writes one product's movement history with running
// balances to w.
func (s *ReportsService) ExportStockCardXLSX(w io.Writer, productID string) error {
	entries, err := s.stock.StockCard(productID)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	headers := []string{"Date", "Type", "Quantity", "Balance", "Note"}
	col := 'A'
	for _, h := range headers {
		f.SetCellValue(reportSheet, string(col)+"1", h)
		col++
	}

	for i, entry := range entries {
		row := fmt.Sprint(i + 2)
		f.SetCellValue(reportSheet, "A"+row, entry.Movement.Date.Format("2006-01-02"))
		f.SetCellValue(reportSheet, "B"+row, string(entry.Movement.Type))
		f.SetCellValue(reportSheet, "C"+row, entry.Movement.Quantity)
		f.SetCellValue(reportSheet, "D"+row, entry.Balance)
		f.SetCellValue(reportSheet, "E"+row, entry.Movement.Note)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write stock card report: %w", err)
	}
	return nil
}

// WriteProductTemplate writes the CSV header and a sample row for the
// product import.
func (s *ReportsService) WriteProductTemplate(w io.Writer) error {
	return writeTemplate(w, [][]string{
		{"code", "name", "category", "hpp", "price", "current_stock", "unit", "description"},
		{"PRD-001", "Sample Product", "Makanan", "1500", "2500", "10", "pcs", "example row, delete before importing"},
	})
}

// WriteCategoryTemplate writes the CSV header for the category import.
func (s *ReportsService) WriteCategoryTemplate(w io.Writer) error {
	return writeTemplate(w, [][]string{
		{"name"},
		{"Contoh Kategori"},
	})
}

// WriteStockMovementTemplate writes the CSV header and a sample row for
// the stock movement import.
func (s *ReportsService) WriteStockMovementTemplate(w io.Writer) error {
	return writeTemplate(w, [][]string{
		{"product_code", "type", "quantity", "date", "note"},
		{"PRD-001", "in", "5", "2026-01-31", "restock"},
	})
}

// WriteSaleTemplate writes the CSV header and sample rows for the sales
// import. Rows sharing a sale_number form one transaction.
func (s *ReportsService) WriteSaleTemplate(w io.Writer) error {
	return writeTemplate(w, [][]string{
		{"sale_number", "customer_name", "sale_date", "status", "payment_method", "product_code", "quantity", "price_at_sale"},
		{"SALE-000001", "Budi", "2026-01-31", "paid", "cash", "PRD-001", "2", "2500"},
		{"SALE-000001", "Budi", "2026-01-31", "paid", "cash", "PRD-002", "1", "10000"},
	})
}

func writeTemplate(w io.Writer, rows [][]string) error {
	writer := csv.NewWriter(w)
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write template: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
