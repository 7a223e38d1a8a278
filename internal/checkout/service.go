// Package checkout creates hosted checkout sessions on the payment
// processor. A lead is registered in the lead store before the session
// so the external reference is known to both sides; the webhook later
// reconciles payment status back onto that lead.
package checkout

import (
	"context"
	"log/slog"
	"strings"
	"time"

	errors "github.com/dietapronta/checkout-funnel/internal"
	"github.com/dietapronta/checkout-funnel/internal/leadstore"
	"github.com/dietapronta/checkout-funnel/internal/processor"
	"github.com/dietapronta/checkout-funnel/internal/reference"
)

type ProcessorAPI interface {
	CreatePreference(ctx context.Context, pref *processor.PreferenceRequest) (*processor.Preference, error)
	SearchPaymentsByReference(ctx context.Context, ref string, limit int) ([]processor.Payment, error)
}

type LeadStoreAPI interface {
	SaveLead(ctx context.Context, lead *leadstore.Lead) (string, error)
}

type Config struct {
	DefaultTitle    string
	DefaultAmount   float64
	CurrencyID      string
	SuccessURL      string
	FailureURL      string
	PendingURL      string
	NotificationURL string
}

type Service struct {
	processor ProcessorAPI
	leads     LeadStoreAPI
	cfg       Config
	logger    *slog.Logger
}

func NewService(proc ProcessorAPI, leads LeadStoreAPI, cfg Config, logger *slog.Logger) *Service {
	if cfg.CurrencyID == "" {
		cfg.CurrencyID = "BRL"
	}
	return &Service{
		processor: proc,
		leads:     leads,
		cfg:       cfg,
		logger:    logger,
	}
}

// CreatePreference registers the lead and opens a checkout session for
// it. Lead registration failure is not fatal: a locally generated
// reference keeps the checkout alive and the webhook will still carry
// it back.
func (s *Service) CreatePreference(ctx context.Context, req *CreatePreferenceRequest) (*PreferenceResponse, error) {
	amount := req.Amount
	if amount <= 0 {
		amount = s.cfg.DefaultAmount
	}

	ref := s.registerLead(ctx, req)

	title := strings.TrimSpace(req.DietTitle + " " + req.BodyType)
	if title == "" {
		title = s.cfg.DefaultTitle
	}

	pref := &processor.PreferenceRequest{
		Items: []processor.PreferenceItem{
			{
				Title:      title,
				Quantity:   1,
				UnitPrice:  amount,
				CurrencyID: s.cfg.CurrencyID,
			},
		},
		BackURLs: processor.BackURLs{
			Success: s.cfg.SuccessURL,
			Failure: s.cfg.FailureURL,
			Pending: s.cfg.PendingURL,
		},
		AutoReturn:        "approved",
		NotificationURL:   s.cfg.NotificationURL,
		ExternalReference: ref,
		Payer:             payerFrom(req.CustomerName, req.CustomerEmail),
	}

	created, err := s.processor.CreatePreference(ctx, pref)
	if err != nil {
		s.logger.Error("preference creation failed", "error", err, "ref", ref)
		return nil, errors.NewExternalError("could not create checkout session", errors.ErrCodePreferenceFailed, err)
	}

	s.logger.Info("preference created",
		"preference_id", created.ID,
		"ref", ref,
		"amount", amount)

	return &PreferenceResponse{
		ID:                created.ID,
		InitPoint:         created.InitPoint,
		ExternalReference: ref,
	}, nil
}

// CreateUpsellPreference opens a follow-up offer checkout under its own
// reference. The parent reference and contact travel inside the
// reference metadata so the webhook can attribute the sale without any
// extra lookup.
func (s *Service) CreateUpsellPreference(ctx context.Context, req *CreateUpsellRequest) (*PreferenceResponse, error) {
	amount := req.Amount
	if amount <= 0 {
		amount = s.cfg.DefaultAmount
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = s.cfg.DefaultTitle
	}

	upsellRef := strings.TrimSpace(req.ParentRef)
	if upsellRef == "" {
		upsellRef = reference.NewUpsellLeadRef()
	}

	lead := &leadstore.Lead{
		Ref:       upsellRef,
		Name:      req.CustomerName,
		Email:     req.CustomerEmail,
		Phone:     upsellPhone(req.CustomerWhatsApp),
		DietTitle: title,
		BodyType:  "Upsell",
		Amount:    amount,
		Status:    processor.StatusPending,
	}
	if _, err := s.leads.SaveLead(ctx, lead); err != nil {
		s.logger.Warn("upsell lead registration failed, continuing", "error", err, "ref", upsellRef)
	}

	metadata := map[string]any{
		"order_type": "upsell",
		"parent_ref": req.ParentRef,
	}
	if req.CustomerWhatsApp != "" {
		metadata["customer_whatsapp"] = req.CustomerWhatsApp
	}

	pref := &processor.PreferenceRequest{
		Items: []processor.PreferenceItem{
			{
				Title:      title,
				Quantity:   1,
				UnitPrice:  amount,
				CurrencyID: s.cfg.CurrencyID,
			},
		},
		BackURLs: processor.BackURLs{
			Success: s.cfg.SuccessURL,
			Failure: s.cfg.FailureURL,
			Pending: s.cfg.PendingURL,
		},
		AutoReturn:        "approved",
		NotificationURL:   s.cfg.NotificationURL,
		ExternalReference: reference.Encode(upsellRef, metadata),
		Payer:             payerFrom(req.CustomerName, req.CustomerEmail),
		Metadata:          metadata,
	}

	created, err := s.processor.CreatePreference(ctx, pref)
	if err != nil {
		s.logger.Error("upsell preference creation failed", "error", err, "ref", upsellRef)
		return nil, errors.NewExternalError("could not create upsell checkout session", errors.ErrCodePreferenceFailed, err)
	}

	s.logger.Info("upsell preference created",
		"preference_id", created.ID,
		"ref", upsellRef,
		"parent_ref", req.ParentRef)

	return &PreferenceResponse{
		ID:                created.ID,
		InitPoint:         created.InitPoint,
		ExternalReference: upsellRef,
	}, nil
}

// CheckStatus returns the most recent payment for a reference. The
// front-end polls this while the buyer sits on the pending page.
func (s *Service) CheckStatus(ctx context.Context, ref string) (*StatusResponse, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, errors.NewValidationError("ref parameter is required", errors.ErrCodeInvalidReference)
	}

	payments, err := s.processor.SearchPaymentsByReference(ctx, ref, 0)
	if err != nil {
		s.logger.Error("payment search failed", "error", err, "ref", ref)
		return nil, errors.NewExternalError("could not query payment status", errors.ErrCodeUpstreamError, err)
	}

	if len(payments) == 0 {
		return &StatusResponse{Found: false, Status: processor.StatusUnknown}, nil
	}

	last := payments[0]
	resp := &StatusResponse{
		Found:             true,
		Status:            last.Status,
		StatusDetail:      last.StatusDetail,
		PaymentID:         last.ID,
		TransactionAmount: last.TransactionAmount,
	}
	if last.DateApproved != nil {
		approved := last.DateApproved.Format(time.RFC3339)
		resp.DateApproved = &approved
	}

	return resp, nil
}

func (s *Service) registerLead(ctx context.Context, req *CreatePreferenceRequest) string {
	if ref := strings.TrimSpace(req.LeadRef); ref != "" {
		return ref
	}

	dietTitle := req.DietTitle
	if dietTitle == "" {
		dietTitle = s.cfg.DefaultTitle
	}

	lead := &leadstore.Lead{
		Name:      req.CustomerName,
		Email:     req.CustomerEmail,
		Phone:     req.CustomerWhatsApp,
		DietTitle: dietTitle,
		BodyType:  req.BodyType,
		IMCValue:  req.IMCValue,
		IMCLabel:  req.IMCLabel,
	}

	ref, err := s.leads.SaveLead(ctx, lead)
	if err != nil {
		fallback := reference.NewLeadRef()
		s.logger.Warn("lead registration failed, using local reference",
			"error", err,
			"ref", fallback)
		return fallback
	}

	return ref
}

// upsellPhone suffixes the contact so the lead store creates a fresh
// record instead of updating the original purchase.
func upsellPhone(phone string) string {
	if phone == "" {
		return ""
	}
	return phone + "-upsell"
}

func payerFrom(name, email string) *processor.PreferencePayer {
	if name == "" && email == "" {
		return nil
	}
	return &processor.PreferencePayer{Name: name, Email: email}
}
