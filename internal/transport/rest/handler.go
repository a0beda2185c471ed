package rest

import (
	"context"
	"net/http"
	"time"

	"debtster-dashboard/internal/domain"
	"debtster-dashboard/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type CaseService interface {
	StatusFilterParser
	ListCases(ctx context.Context, q service.CaseListQuery) ([]service.CaseSummary, error)
	GetCaseDetail(ctx context.Context, id string) (*service.CaseDetail, error)
	ChangeStatus(ctx context.Context, caseID string, to domain.CaseStatus, changedBy int64) (*service.StatusChange, error)
	AddCommunication(ctx context.Context, caseID string, channel domain.CommChannel, content string) (*domain.Communication, error)
	ListDisputes(ctx context.Context) ([]service.Dispute, error)
}

type AnalyticsService interface {
	CoreMetrics(ctx context.Context) (service.CoreMetrics, error)
	AgingDistribution(ctx context.Context) ([]service.AgingBucket, error)
	RecoveryTrend(ctx context.Context, g service.Granularity) ([]service.TrendPoint, error)
	RecoveryByPriority(ctx context.Context) ([]service.PriorityPoint, error)
}

type AttachmentService interface {
	UploadAttachments(ctx context.Context, caseID string, files []service.UploadFile) (*service.UploadResult, error)
	AttachmentURL(ctx context.Context, caseID, attachmentID string) (string, error)
}

type DebtorService interface {
	CreateDebtor(ctx context.Context, in service.NewDebtorInput) (*domain.Debtor, *domain.Case, error)
}

type PaymentService interface {
	ListPayments(ctx context.Context, limit int) ([]service.PaymentView, error)
}

type CaseExporter interface {
	StartCasesExport(ctx context.Context, q service.CaseListQuery, fields []string, userID int64) (string, error)
}

// Services groups the handler dependencies. Nil members leave their
// routes unmounted.
type Services struct {
	Cases       CaseService
	Analytics   AnalyticsService
	Attachments AttachmentService
	Debtors     DebtorService
	Payments    PaymentService
	Exporter    CaseExporter
	ExportList  ExportListService
}

type Handler struct {
	cases       CaseService
	analytics   AnalyticsService
	attachments AttachmentService
	debtors     DebtorService
	payments    PaymentService
	exporter    CaseExporter
	exportList  ExportListService

	log *zap.Logger
}

func NewHandler(s Services, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		cases:       s.Cases,
		analytics:   s.Analytics,
		attachments: s.Attachments,
		debtors:     s.Debtors,
		payments:    s.Payments,
		exporter:    s.Exporter,
		exportList:  s.ExportList,
		log:         log,
	}
}

func (h *Handler) InitRouter() *chi.Mux {
	return h.InitRouterWithAuth(nil)
}

func (h *Handler) InitRouterWithAuth(authMiddleware func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		RequestLogger(h.log),
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)

	if authMiddleware != nil {
		r.Use(authMiddleware)
	}

	if h.cases != nil {
		r.Route("/cases", func(r chi.Router) {
			r.Get("/", h.listCases)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getCase)
				r.Patch("/status", h.changeStatus)
				r.Post("/communications", h.addCommunication)
				if h.attachments != nil {
					r.Post("/attachments", h.uploadAttachments)
					r.Get("/attachments/{attachmentID}/url", h.attachmentURL)
				}
			})
		})
		r.Get("/disputes", h.listDisputes)
	}

	if h.payments != nil {
		r.Get("/payments", h.listPayments)
	}

	if h.debtors != nil {
		r.Post("/debtors", h.createDebtor)
	}

	if h.analytics != nil {
		r.Route("/analytics", func(r chi.Router) {
			r.Get("/metrics", h.coreMetrics)
			r.Get("/aging", h.agingDistribution)
			r.Get("/trends", h.recoveryTrend)
			r.Get("/trends/priority", h.recoveryByPriority)
		})
	}

	r.Route("/export", func(r chi.Router) {
		if h.exportList != nil {
			r.Get("/", h.listExports)
			r.Get("/{export_id}", h.getExport)
		}
		if h.exporter != nil && h.cases != nil {
			r.Post("/cases", h.exportCases)
		}
	})

	return r
}
