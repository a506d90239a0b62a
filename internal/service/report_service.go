package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/iamyinka/reliefproj/internal/domain"
	"github.com/iamyinka/reliefproj/internal/repository"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ApplicationsExportHeader column order of the applications workbook
var ApplicationsExportHeader = []string{
	"Reference Number",
	"Applicant Name",
	"Phone",
	"Email",
	"Address",
	"Family Size",
	"Children",
	"Elderly",
	"Church Member",
	"Package",
	"Preferred Date",
	"Time Slot",
	"Status",
	"Reviewed By",
	"Reviewed At",
	"Submitted At",
	"Pickup Code",
	"Pickup Status",
}

var applicationsExportWidths = []float64{18, 25, 15, 25, 35, 11, 10, 10, 14, 20, 14, 20, 12, 18, 20, 20, 18, 14}

const exportPageSize = 500

// ReportService staff spreadsheet exports
type ReportService struct {
	apps     repository.ApplicationsRepository
	vouchers repository.VouchersRepository
	loc      *time.Location
	logger   *zap.Logger
}

func NewReportService(apps repository.ApplicationsRepository, vouchers repository.VouchersRepository, loc *time.Location, logger *zap.Logger) *ReportService {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportService{apps: apps, vouchers: vouchers, loc: loc, logger: logger}
}

// ExportApplications writes every application matching filter to an xlsx workbook.
func (s *ReportService) ExportApplications(ctx context.Context, filter repository.ApplicationsFilter) ([]byte, error) {
	var rows [][]any
	for page := 1; ; page++ {
		apps, total, err := s.apps.ListApplications(ctx, filter, page, exportPageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to list applications: %w", err)
		}
		for _, a := range apps {
			row, err := s.applicationRow(ctx, a)
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
		if len(apps) == 0 || page*exportPageSize >= total {
			break
		}
	}
	s.logger.Info("Exporting applications", zap.Int("rows", len(rows)))
	return generateWorkbook("Applications", ApplicationsExportHeader, applicationsExportWidths, rows)
}

func (s *ReportService) applicationRow(ctx context.Context, a *domain.Application) ([]any, error) {
	reviewedAt := ""
	if a.ReviewedAt != nil {
		reviewedAt = a.ReviewedAt.In(s.loc).Format("2006-01-02 15:04:05")
	}
	pickupCode, pickupStatus := "", ""
	if a.Status == domain.ApplicationApproved || a.Status == domain.ApplicationPickedUp {
		lookup, err := s.vouchers.VoucherForApplication(ctx, a.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load pickup for %s: %w", a.ReferenceNumber, err)
		}
		if lookup.Found {
			pickupCode, pickupStatus = lookup.Voucher.PickupCode, string(lookup.Voucher.Status)
		}
	}
	return []any{
		a.ReferenceNumber,
		a.FullName(),
		a.Phone,
		a.Email,
		a.Address,
		a.FamilySize,
		a.ChildrenCount,
		a.ElderlyCount,
		a.ChurchMember,
		a.SelectedPackage.DisplayName(),
		domain.DateString(a.PreferredDate),
		domain.TimeSlotDisplay(a.PreferredTime),
		a.Status.Label(),
		a.ReviewedBy,
		reviewedAt,
		a.CreatedAt.In(s.loc).Format("2006-01-02 15:04:05"),
		pickupCode,
		pickupStatus,
	}, nil
}

func generateWorkbook(sheetName string, headers []string, widths []float64, rows [][]any) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo needs the file open; close explicitly on every path.

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		if col < len(widths) {
			name, err := excelize.ColumnNumberToName(col + 1)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert column number: %w", err)
			}
			if err := f.SetColWidth(sheetName, name, name, widths[col]); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set column width: %w", err)
			}
		}
	}

	for i, row := range rows {
		for j, value := range row {
			if value == nil || value == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell value at %s: %w", cell, err)
			}
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close workbook: %w", err)
	}
	return buf.Bytes(), nil
}
