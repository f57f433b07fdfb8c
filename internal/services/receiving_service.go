package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
	"gorm.io/gorm"

	"github.com/ki3lbix/Kuchnia/internal/models"
)

// ErrEmptyReceipt в приходной накладной нет ни одной валидной строки
var ErrEmptyReceipt = errors.New("receipt contains no valid lines")

// ReceiptLine валидированная строка приходной накладной
type ReceiptLine struct {
	ProductID  string
	Quantity   decimal.Decimal
	ExpiryDate *time.Time
	// Unit единица количества в накладной, пусто = единица продукта
	Unit string
}

// ReceiptImportResult итог оприходования
type ReceiptImportResult struct {
	BatchIDs []string `json:"batch_ids"`
	Skipped  []string `json:"skipped"`
}

var receiptColumns = map[string][]string{
	"product_id":  {"product_id", "product", "продукт", "товар"},
	"quantity":    {"quantity", "qty", "количество", "кол-во"},
	"expiry_date": {"expiry_date", "expiry", "срок годности", "годен до"},
	"unit":        {"unit", "ед", "ед.", "ед. изм.", "единица"},
}

var expiryLayouts = []string{"2006-01-02", "02.01.2006"}

// ParseReceiptFile выбирает разбор по расширению: .xlsx или .csv
func ParseReceiptFile(filename string, r io.Reader) ([]ReceiptLine, []string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return ParseReceiptWorkbook(r)
	case ".csv":
		return ParseReceiptCSV(r)
	}
	return nil, nil, fmt.Errorf("неподдерживаемый формат файла: %s", filename)
}

// ParseReceiptWorkbook читает первый лист XLSX. Первая строка заголовки, колонки ищутся по названию.
// Невалидные строки не прерывают разбор, а попадают в skipped с номером строки
func ParseReceiptWorkbook(r io.Reader) ([]ReceiptLine, []string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка открытия XLSX файла: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, nil, fmt.Errorf("файл не содержит листов")
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка чтения листа: %w", err)
	}
	return parseReceiptRows(rows)
}

// ParseReceiptCSV читает CSV выгрузку из учетной системы. Кодировка UTF-8 или Windows-1251,
// разделитель определяется по строке заголовков
func ParseReceiptCSV(r io.Reader) ([]ReceiptLine, []string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка чтения файла: %w", err)
	}
	if !utf8.Valid(data) {
		data, _, err = transform.Bytes(charmap.Windows1251.NewDecoder(), data)
		if err != nil {
			return nil, nil, fmt.Errorf("ошибка декодирования Windows-1251: %w", err)
		}
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = detectDelimiter(data)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка чтения CSV: %w", err)
	}
	return parseReceiptRows(rows)
}

// detectDelimiter самый частый из ; , \t | в первой строке
func detectDelimiter(data []byte) rune {
	header := string(data)
	if i := strings.IndexByte(header, '\n'); i >= 0 {
		header = header[:i]
	}

	delimiter, maxCount := ',', strings.Count(header, ",")
	for _, d := range []rune{';', '\t', '|'} {
		if n := strings.Count(header, string(d)); n > maxCount {
			delimiter, maxCount = d, n
		}
	}
	return delimiter
}

func parseReceiptRows(rows [][]string) ([]ReceiptLine, []string, error) {
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("файл пуст")
	}

	index := make(map[string]int)
	for i, h := range rows[0] {
		cell := strings.ToLower(strings.TrimSpace(h))
		for column, aliases := range receiptColumns {
			for _, alias := range aliases {
				if cell == alias {
					index[column] = i
				}
			}
		}
	}
	for _, required := range []string{"product_id", "quantity"} {
		if _, ok := index[required]; !ok {
			return nil, nil, fmt.Errorf("не найдена колонка %s", required)
		}
	}

	var (
		lines   []ReceiptLine
		skipped []string
	)
	for i, row := range rows[1:] {
		rowNum := i + 2
		if isBlankRow(row) {
			continue
		}
		line, err := parseReceiptRow(row, index)
		if err != nil {
			skipped = append(skipped, fmt.Sprintf("строка %d: %v", rowNum, err))
			continue
		}
		lines = append(lines, line)
	}
	return lines, skipped, nil
}

func parseReceiptRow(row []string, index map[string]int) (ReceiptLine, error) {
	productID := cellAt(row, index["product_id"])
	if _, err := uuid.Parse(productID); err != nil {
		return ReceiptLine{}, fmt.Errorf("невалидный product_id %q", productID)
	}

	qty, err := decimal.NewFromString(strings.ReplaceAll(cellAt(row, index["quantity"]), ",", "."))
	if err != nil {
		return ReceiptLine{}, fmt.Errorf("неверный формат quantity")
	}
	if !qty.IsPositive() {
		return ReceiptLine{}, fmt.Errorf("quantity должен быть > 0, получено: %s", qty.String())
	}

	line := ReceiptLine{ProductID: productID, Quantity: qty}
	if col, ok := index["unit"]; ok {
		line.Unit = cellAt(row, col)
	}
	if col, ok := index["expiry_date"]; ok {
		if raw := cellAt(row, col); raw != "" {
			expiry, err := parseExpiry(raw)
			if err != nil {
				return ReceiptLine{}, err
			}
			line.ExpiryDate = &expiry
		}
	}
	return line, nil
}

func parseExpiry(raw string) (time.Time, error) {
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("неверный формат expiry_date %q", raw)
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ReceivingService оприходует партии по приходным накладным
type ReceivingService struct {
	db *gorm.DB
}

// NewReceivingService создает сервис оприходования
func NewReceivingService(db *gorm.DB) *ReceivingService {
	return &ReceivingService{db: db}
}

// ImportReceipts создает партии и движения receipt в одной транзакции. Количество переводится
// в единицу продукта. Неизвестный продукт или несовместимая единица откатывает всю накладную
func (s *ReceivingService) ImportReceipts(ctx context.Context, lines []ReceiptLine) ([]string, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyReceipt
	}

	now := time.Now().UTC()
	var batches []models.Batch

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		productIDs := make([]string, 0, len(lines))
		seen := make(map[string]struct{})
		for _, l := range lines {
			if _, ok := seen[l.ProductID]; !ok {
				seen[l.ProductID] = struct{}{}
				productIDs = append(productIDs, l.ProductID)
			}
		}
		var products []models.Product
		if err := tx.Where("product_id IN ?", productIDs).Find(&products).Error; err != nil {
			return err
		}
		if len(products) != len(productIDs) {
			return fmt.Errorf("накладная ссылается на %d неизвестных продуктов", len(productIDs)-len(products))
		}
		units := make(map[string]string, len(products))
		for _, p := range products {
			units[p.ID] = p.Unit
		}

		batches = make([]models.Batch, 0, len(lines))
		txns := make([]models.InventoryTransaction, 0, len(lines))
		for i, l := range lines {
			qty := l.Quantity
			if l.Unit != "" {
				converted, err := ConvertQuantity(qty, l.Unit, units[l.ProductID])
				if err != nil {
					return fmt.Errorf("строка %d: %w", i+1, err)
				}
				qty = converted
			}
			qty = qty.Round(models.QtyScale)
			if !qty.IsPositive() {
				return fmt.Errorf("строка %d: количество %s меньше точности учета", i+1, l.Quantity.String())
			}

			batchID := uuid.New().String()
			batches = append(batches, models.Batch{
				ID:           batchID,
				ProductID:    l.ProductID,
				ExpiryDate:   l.ExpiryDate,
				QtyAvailable: qty,
				CreatedAt:    now,
			})
			txns = append(txns, models.InventoryTransaction{
				ID:        uuid.New().String(),
				ProductID: l.ProductID,
				BatchID:   &batchID,
				Type:      models.TxnReceipt,
				Qty:       qty,
				CreatedAt: now,
			})
		}

		const chunkSize = 500
		if err := tx.CreateInBatches(&batches, chunkSize).Error; err != nil {
			return fmt.Errorf("ошибка вставки партий: %w", err)
		}
		if err := tx.CreateInBatches(&txns, chunkSize).Error; err != nil {
			return fmt.Errorf("ошибка вставки движений: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Int("lines", len(lines)).Msg("❌ receipt import rolled back")
		return nil, err
	}

	ids := make([]string, 0, len(batches))
	for _, b := range batches {
		ids = append(ids, b.ID)
	}
	log.Info().Int("batches", len(ids)).Msg("✅ receipt imported")
	return ids, nil
}
