package pricing

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

const (
	MsgSectionError = "无法加载价格信息，请稍后再试。"
	MsgSectionEmpty = "暂无定价数据，请稍后再试。"
	DefaultCTAHref  = "/auth?view=signup"
)

// Billing selects which price a card shows.
type Billing string

const (
	BillingAnnual  Billing = "annual"
	BillingMonthly Billing = "monthly"
)

// ParseBilling maps ?billing=; annual is the default.
func ParseBilling(s string) Billing {
	if s == string(BillingMonthly) {
		return BillingMonthly
	}
	return BillingAnnual
}

// Card is a plan prepared for rendering.
type Card struct {
	Plan
	AnnualLabel  string
	MonthlyLabel string
	Href         string
}

// Price returns the label for the selected billing period.
func (c Card) Price(b Billing) string {
	if b == BillingMonthly {
		return c.MonthlyLabel
	}
	return c.AnnualLabel
}

// SectionState is what the pricing section renders. Exactly one of Loading,
// Error, Empty or a non-empty Cards holds once resolved.
type SectionState struct {
	Loading bool
	Error   string
	Cards   []Card
}

func (s SectionState) Empty() bool {
	return !s.Loading && s.Error == "" && len(s.Cards) == 0
}

// Section loads plans for the landing page.
type Section struct {
	source Lister
	logger *slog.Logger

	mu    sync.Mutex
	state SectionState
}

func NewSection(source Lister, logger *slog.Logger) *Section {
	return &Section{source: source, logger: logger, state: SectionState{Loading: true}}
}

func (s *Section) State() SectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Load fetches plans and resolves the section. A fetch abandoned because ctx
// was cancelled leaves the state as it was.
func (s *Section) Load(ctx context.Context) SectionState {
	plans, err := s.source.ListPlans(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return s.State()
		}
		s.logger.ErrorContext(ctx, "failed to load pricing plans", "error", err)
		s.set(func(st *SectionState) {
			st.Loading = false
			st.Error = MsgSectionError
		})
		return s.State()
	}

	cards := make([]Card, 0, len(plans))
	for _, p := range plans {
		cards = append(cards, NewCard(p))
	}
	s.set(func(st *SectionState) {
		st.Loading = false
		st.Error = ""
		st.Cards = cards
	})
	return s.State()
}

func (s *Section) set(fn func(*SectionState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
}

func NewCard(p Plan) Card {
	href := DefaultCTAHref
	if p.CTAHref != nil && *p.CTAHref != "" {
		href = *p.CTAHref
	}
	return Card{
		Plan:         p,
		AnnualLabel:  FormatPrice(p.AnnualPrice, p.Currency),
		MonthlyLabel: FormatPrice(p.MonthlyPrice, p.Currency),
		Href:         href,
	}
}

// Message returns the text shown instead of cards, if any.
func (s SectionState) Message() string {
	switch {
	case s.Error != "":
		return s.Error
	case s.Empty():
		return MsgSectionEmpty
	}
	return ""
}
