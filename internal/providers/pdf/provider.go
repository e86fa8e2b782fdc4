package pdf

import (
	"context"
	"io"

	"go.uber.org/fx"

	"github.com/smallbiznis/ecoscape/internal/config"
	customerdomain "github.com/smallbiznis/ecoscape/internal/customer/domain"
	maintenancedomain "github.com/smallbiznis/ecoscape/internal/maintenance/domain"
)

var Module = fx.Module("pdf.provider",
	fx.Provide(New),
)

// Provider renders downloadable reports.
type Provider interface {
	CustomerReport(ctx context.Context, report customerdomain.CustomerReport) (io.Reader, error)
	ServiceReport(ctx context.Context, report maintenancedomain.Report) (io.Reader, error)
}

type PDFProvider struct {
	settings *config.ReportConfigHolder
}

func New(settings *config.ReportConfigHolder) Provider {
	return &PDFProvider{settings: settings}
}

func (p *PDFProvider) company() config.CompanyProfile {
	if p.settings == nil {
		return config.DefaultReportConfig().Company
	}
	return p.settings.Get().Company
}

func (p *PDFProvider) CustomerReport(ctx context.Context, report customerdomain.CustomerReport) (io.Reader, error) {
	return render(ctx, customerReportDocument(p.company(), report))
}

func (p *PDFProvider) ServiceReport(ctx context.Context, report maintenancedomain.Report) (io.Reader, error) {
	return render(ctx, serviceReportDocument(p.company(), report))
}
