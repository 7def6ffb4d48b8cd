package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jkaninda/okapi"

	"github.com/rewardhub/rewardhub/internal/domain"
	"github.com/rewardhub/rewardhub/internal/security"
)

// registerRewardsRoutes mounts the points flows: receipt submission, voucher
// redemption, balances, history and dashboard stats.
func (g *Gateway) registerRewardsRoutes() {
	g.group.Post("/receipts", g.handleReceiptSubmit,
		okapi.DocSummary("Submit a receipt to accrue points"),
		okapi.DocTags("Rewards"),
		okapi.DocRequestBody(ReceiptRequest{}),
		okapi.DocResponse(http.StatusCreated, ReceiptResponse{}),
		okapi.DocResponse(http.StatusUnprocessableEntity, ErrorBody{}),
	)
	g.group.Get("/receipts", g.handleReceiptList,
		okapi.DocSummary("List recent receipts"),
		okapi.DocTags("Rewards"),
		okapi.DocResponse([]ReceiptResponse{}),
	)
	g.group.Post("/redemptions", g.handleRedemption,
		okapi.DocSummary("Redeem a voucher for a member"),
		okapi.DocTags("Rewards"),
		okapi.DocRequestBody(RedemptionRequest{}),
		okapi.DocResponse(http.StatusCreated, RedemptionResponse{}),
		okapi.DocResponse(http.StatusUnprocessableEntity, ErrorBody{}),
		okapi.DocResponse(http.StatusConflict, ErrorBody{}),
	)
	g.group.Get("/redemptions", g.handleRedemptionList,
		okapi.DocSummary("List recent redemptions"),
		okapi.DocTags("Rewards"),
		okapi.DocResponse([]RedemptionEntry{}),
	)
	g.group.Get("/points/{memberID}", g.handleBalance,
		okapi.DocSummary("Fetch a member's points balance"),
		okapi.DocTags("Rewards"),
		okapi.DocPathParam("memberID", "string", "External member identifier"),
		okapi.DocResponse(BalanceResponse{}),
	)
	g.group.Get("/history", g.handleHistory,
		okapi.DocSummary("Recent receipts and redemptions, newest first"),
		okapi.DocTags("Rewards"),
		okapi.DocResponse(HistoryResponse{}),
	)
	g.group.Get("/dashboard", g.handleDashboard,
		okapi.DocSummary("Aggregate activity stats for the tenant"),
		okapi.DocTags("Dashboard"),
		okapi.DocResponse(domain.DashboardStats{}),
	)
}

// ReceiptRequest submits a purchase proof against a campaign.
type ReceiptRequest struct {
	MemberID    string `json:"member_id"`
	CampaignID  string `json:"campaign_id"`
	AmountCents int64  `json:"amount_cents"`
	SubmittedAt string `json:"submitted_at,omitempty"` // RFC 3339, default now.
}

// ReceiptResponse is the receipt wire form.
type ReceiptResponse struct {
	ID            string `json:"id"`
	MemberID      string `json:"member_id"`
	CampaignID    string `json:"campaign_id"`
	AmountCents   int64  `json:"amount_cents"`
	PointsAwarded int64  `json:"points_awarded"`
	SubmittedAt   string `json:"submitted_at"`
}

func toReceiptResponse(r *domain.Receipt) ReceiptResponse {
	return ReceiptResponse{
		ID:            r.ID.String(),
		MemberID:      r.MemberID,
		CampaignID:    r.CampaignID.String(),
		AmountCents:   r.AmountCents,
		PointsAwarded: r.PointsAwarded,
		SubmittedAt:   r.SubmittedAt.Format(time.RFC3339),
	}
}

func (g *Gateway) handleReceiptSubmit(c *okapi.Context) error {
	ctx, _ := g.scopedCtx(c)
	if err := g.requirePermission(ctx, c, security.PermReceiptsWrite); err != nil {
		return err
	}

	var req ReceiptRequest
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("invalid request body")
	}
	if req.MemberID == "" {
		return c.AbortBadRequest("member_id is required")
	}
	campaignID, err := uuid.Parse(req.CampaignID)
	if err != nil {
		return c.AbortBadRequest("campaign_id must be a UUID")
	}
	submittedAt := time.Now().UTC()
	if req.SubmittedAt != "" {
		submittedAt, err = time.Parse(time.RFC3339, req.SubmittedAt)
		if err != nil {
			return c.AbortBadRequest("submitted_at must be RFC 3339")
		}
	}

	receipt, err := g.rewards.SubmitReceipt(ctx, req.MemberID, campaignID, req.AmountCents, submittedAt)
	if err != nil {
		g.recordReceipt("failure")
		return g.fail(c, err)
	}
	g.recordReceipt("success")
	if m := g.config.Metrics; m != nil {
		m.PointsAccrued.Add(float64(receipt.PointsAwarded))
	}
	return c.JSON(http.StatusCreated, toReceiptResponse(receipt))
}

func (g *Gateway) handleReceiptList(c *okapi.Context) error {
	ctx, _ := g.scopedCtx(c)
	if err := g.requirePermission(ctx, c, security.PermReceiptsRead); err != nil {
		return err
	}

	receipts, err := g.store.Receipts().List(ctx, listLimit(c))
	if err != nil {
		return g.fail(c, err)
	}
	resp := make([]ReceiptResponse, len(receipts))
	for i, r := range receipts {
		resp[i] = toReceiptResponse(r)
	}
	return c.OK(resp)
}

// RedemptionRequest spends a member's points on a voucher.
type RedemptionRequest struct {
	MemberID  string `json:"member_id"`
	VoucherID string `json:"voucher_id"`
}

// RedemptionResponse confirms a redemption with the voucher redeemed.
type RedemptionResponse struct {
	MemberID    string `json:"member_id"`
	VoucherID   string `json:"voucher_id"`
	VoucherCode string `json:"voucher_code"`
	Title       string `json:"title"`
	PointsSpent int64  `json:"points_spent"`
}

// RedemptionEntry is one row in the redemption history.
type RedemptionEntry struct {
	ID          string `json:"id"`
	MemberID    string `json:"member_id"`
	VoucherID   string `json:"voucher_id"`
	PointsSpent int64  `json:"points_spent"`
	CreatedAt   string `json:"created_at"`
}

func toRedemptionEntry(r *domain.Redemption) RedemptionEntry {
	return RedemptionEntry{
		ID:          r.ID.String(),
		MemberID:    r.MemberID,
		VoucherID:   r.VoucherID.String(),
		PointsSpent: r.PointsSpent,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
	}
}

func (g *Gateway) handleRedemption(c *okapi.Context) error {
	ctx, _ := g.scopedCtx(c)
	if err := g.requirePermission(ctx, c, security.PermRedemptionsWrite); err != nil {
		return err
	}

	var req RedemptionRequest
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("invalid request body")
	}
	if req.MemberID == "" {
		return c.AbortBadRequest("member_id is required")
	}
	voucherID, err := uuid.Parse(req.VoucherID)
	if err != nil {
		return c.AbortBadRequest("voucher_id must be a UUID")
	}

	voucher, err := g.rewards.RedeemVoucher(ctx, req.MemberID, voucherID)
	if err != nil {
		g.recordRedemption("failure")
		return g.fail(c, err)
	}
	g.recordRedemption("success")
	if m := g.config.Metrics; m != nil {
		m.PointsRedeemed.Add(float64(voucher.PointsCost))
	}
	return c.JSON(http.StatusCreated, RedemptionResponse{
		MemberID:    req.MemberID,
		VoucherID:   voucher.ID.String(),
		VoucherCode: voucher.Code,
		Title:       voucher.Title,
		PointsSpent: voucher.PointsCost,
	})
}

func (g *Gateway) handleRedemptionList(c *okapi.Context) error {
	ctx, _ := g.scopedCtx(c)
	if err := g.requirePermission(ctx, c, security.PermRedemptionsRead); err != nil {
		return err
	}

	redemptions, err := g.store.Redemptions().List(ctx, listLimit(c))
	if err != nil {
		return g.fail(c, err)
	}
	resp := make([]RedemptionEntry, len(redemptions))
	for i, r := range redemptions {
		resp[i] = toRedemptionEntry(r)
	}
	return c.OK(resp)
}

// BalanceResponse is a member's points position.
type BalanceResponse struct {
	MemberID  string `json:"member_id"`
	Earned    int64  `json:"earned"`
	Spent     int64  `json:"spent"`
	Available int64  `json:"available"`
}

func (g *Gateway) handleBalance(c *okapi.Context) error {
	ctx, _ := g.scopedCtx(c)
	if err := g.requirePermission(ctx, c, security.PermReceiptsRead); err != nil {
		return err
	}
	memberID := c.Param("memberID")
	if memberID == "" {
		return c.AbortBadRequest("memberID is required")
	}

	balance, err := g.rewards.Balance(ctx, memberID)
	if err != nil {
		return g.fail(c, err)
	}
	return c.OK(BalanceResponse{
		MemberID:  balance.MemberID,
		Earned:    balance.Earned,
		Spent:     balance.Spent,
		Available: balance.Available(),
	})
}

// HistoryResponse combines recent activity in both directions.
type HistoryResponse struct {
	Receipts    []ReceiptResponse `json:"receipts"`
	Redemptions []RedemptionEntry `json:"redemptions"`
}

func (g *Gateway) handleHistory(c *okapi.Context) error {
	ctx, _ := g.scopedCtx(c)
	if err := g.requirePermission(ctx, c, security.PermReceiptsRead); err != nil {
		return err
	}

	receipts, redemptions, err := g.rewards.History(ctx, listLimit(c))
	if err != nil {
		return g.fail(c, err)
	}
	resp := HistoryResponse{
		Receipts:    make([]ReceiptResponse, len(receipts)),
		Redemptions: make([]RedemptionEntry, len(redemptions)),
	}
	for i, r := range receipts {
		resp.Receipts[i] = toReceiptResponse(r)
	}
	for i, r := range redemptions {
		resp.Redemptions[i] = toRedemptionEntry(r)
	}
	return c.OK(resp)
}

func (g *Gateway) handleDashboard(c *okapi.Context) error {
	ctx, _ := g.scopedCtx(c)
	if err := g.requirePermission(ctx, c, security.PermDashboardRead); err != nil {
		return err
	}

	stats, err := g.dash.Stats(ctx)
	if err != nil {
		return g.fail(c, err)
	}
	return c.OK(stats)
}

// listLimit reads an optional ?limit query, clamped to 1..1000, default 50.
func listLimit(c *okapi.Context) int {
	limit := 50
	if raw := c.Request().URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	return limit
}

func (g *Gateway) recordReceipt(result string) {
	if m := g.config.Metrics; m != nil {
		m.ReceiptsTotal.WithLabelValues(result).Inc()
	}
}

func (g *Gateway) recordRedemption(result string) {
	if m := g.config.Metrics; m != nil {
		m.RedemptionsTotal.WithLabelValues(result).Inc()
	}
}
