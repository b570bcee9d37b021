package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/pkg/export"
	"github.com/noah-isme/school-admin-api/pkg/money"
	"github.com/noah-isme/school-admin-api/pkg/storage"
)

const reportDateLayout = "2006-01-02"

type feeReportSource interface {
	ListBalancesForReport(ctx context.Context, filter models.BalanceFilter) ([]models.FeeBalanceView, error)
	ListPaymentsForReport(ctx context.Context, filter models.PaymentFilter) ([]models.FeePaymentView, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
	Currency  string
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	Rows         int
	ExpiresAt    time.Time
}

// ExportService builds fee report datasets and persists rendered files.
type ExportService struct {
	fees    feeReportSource
	storage fileStorage
	csv     csvRenderer
	pdf     pdfRenderer
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
	now     func() time.Time
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// NewExportService constructs an ExportService.
func NewExportService(fees feeReportSource, storage fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		fees:    fees,
		storage: storage,
		csv:     csv,
		pdf:     pdf,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Generate builds the dataset for a job, renders it and stores the file
// behind a signed download URL.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(job), payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	s.logger.Debug("report rendered",
		zap.String("job_id", job.ID),
		zap.String("type", string(job.Type)),
		zap.Int("rows", len(dataset.Rows)),
		zap.Int("bytes", len(payload)))
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/export/%s", prefix, token),
		Format:       job.Params.Format,
		Rows:         len(dataset.Rows),
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	scope := sanitizeFilename(job.Params.AcademicYearID)
	if job.Type == models.ReportTypeFeeCollections {
		scope = sanitizeFilename(job.Params.From + "_" + job.Params.To)
	}
	return fmt.Sprintf("%s_%s_%s.%s", job.Type, scope, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	raw = strings.Trim(raw, "_")
	if raw == "" {
		return "all"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ReportTypeFeeDefaulters:
		return s.buildBalanceDataset(ctx, job.Params, true)
	case models.ReportTypeFeeBalances:
		return s.buildBalanceDataset(ctx, job.Params, false)
	case models.ReportTypeFeeCollections:
		return s.buildCollectionsDataset(ctx, job.Params)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported report type %s", job.Type)
	}
}

var balanceHeaders = []string{"Admission No", "Student", "Grade", "Academic Year", "Term", "Amount Due", "Paid", "Balance", "Due Date", "Status"}

func (s *ExportService) buildBalanceDataset(ctx context.Context, params models.ReportJobParams, overdueOnly bool) (export.Dataset, string, error) {
	filter := models.BalanceFilter{AcademicYearID: params.AcademicYearID, GradeID: params.GradeID}
	title := "Fee Balances Report"
	if overdueOnly {
		today := truncateDay(s.now())
		filter.OverdueAt = &today
		title = "Fee Defaulters Report " + today.Format(reportDateLayout)
	}
	balances, err := s.fees.ListBalancesForReport(ctx, filter)
	if err != nil {
		return export.Dataset{}, "", err
	}

	rows := make([]map[string]string, 0, len(balances))
	due := make([]decimal.Decimal, 0, len(balances))
	paid := make([]decimal.Decimal, 0, len(balances))
	outstanding := make([]decimal.Decimal, 0, len(balances))
	for _, b := range balances {
		status := "Unpaid"
		if b.IsPaid {
			status = "Paid"
		}
		grade := ""
		if b.GradeName != nil {
			grade = *b.GradeName
		}
		dueDate := ""
		if b.DueDate != nil {
			dueDate = b.DueDate.Format(reportDateLayout)
		}
		rows = append(rows, map[string]string{
			"Admission No":  b.AdmissionNumber,
			"Student":       b.StudentName,
			"Grade":         grade,
			"Academic Year": b.AcademicYearName,
			"Term":          string(b.Term),
			"Amount Due":    money.Format(b.AmountAfterScholarship),
			"Paid":          money.Format(b.AmountPaid),
			"Balance":       money.Format(b.Balance),
			"Due Date":      dueDate,
			"Status":        status,
		})
		due = append(due, b.AmountAfterScholarship)
		paid = append(paid, b.AmountPaid)
		outstanding = append(outstanding, b.Balance)
	}

	return export.Dataset{
		Headers: balanceHeaders,
		Rows:    rows,
		Footer: map[string]string{
			"Admission No": "TOTAL " + s.cfg.Currency,
			"Student":      fmt.Sprintf("%d students", len(rows)),
			"Amount Due":   money.Format(money.Sum(due...)),
			"Paid":         money.Format(money.Sum(paid...)),
			"Balance":      money.Format(money.Sum(outstanding...)),
		},
	}, title, nil
}

var collectionHeaders = []string{"Receipt", "Date", "Admission No", "Student", "Academic Year", "Term", "Method", "Reference", "Amount"}

func (s *ExportService) buildCollectionsDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	filter := models.PaymentFilter{Status: string(models.PaymentCompleted)}
	if params.From != "" {
		from, err := time.Parse(reportDateLayout, params.From)
		if err != nil {
			return export.Dataset{}, "", fmt.Errorf("parse from date: %w", err)
		}
		filter.From = &from
	}
	if params.To != "" {
		to, err := time.Parse(reportDateLayout, params.To)
		if err != nil {
			return export.Dataset{}, "", fmt.Errorf("parse to date: %w", err)
		}
		filter.To = &to
	}
	payments, err := s.fees.ListPaymentsForReport(ctx, filter)
	if err != nil {
		return export.Dataset{}, "", err
	}

	rows := make([]map[string]string, 0, len(payments))
	amounts := make([]decimal.Decimal, 0, len(payments))
	for _, p := range payments {
		rows = append(rows, map[string]string{
			"Receipt":       p.ReceiptNumber,
			"Date":          p.PaymentDate.Format(reportDateLayout),
			"Admission No":  p.AdmissionNumber,
			"Student":       p.StudentName,
			"Academic Year": p.AcademicYearName,
			"Term":          string(p.Term),
			"Method":        string(p.PaymentMethod),
			"Reference":     p.TransactionReference,
			"Amount":        money.Format(p.AmountPaid),
		})
		amounts = append(amounts, p.AmountPaid)
	}

	title := "Fee Collections Report"
	if params.From != "" || params.To != "" {
		title = fmt.Sprintf("%s %s to %s", title, orDash(params.From), orDash(params.To))
	}
	return export.Dataset{
		Headers: collectionHeaders,
		Rows:    rows,
		Footer: map[string]string{
			"Receipt": "TOTAL " + s.cfg.Currency,
			"Date":    fmt.Sprintf("%d payments", len(rows)),
			"Amount":  money.Format(money.Sum(amounts...)),
		},
	}, title, nil
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
