package httpapi

import (
	"net/http"
	"time"

	"github.com/jkaninda/okapi"

	"github.com/rewardhub/rewardhub/internal/domain"
	"github.com/rewardhub/rewardhub/internal/security"
)

// registerCatalogRoutes mounts the reward catalog: campaigns, vouchers and ads.
func (g *Gateway) registerCatalogRoutes() {
	g.group.Post("/campaigns", g.handleCampaignCreate,
		okapi.DocSummary("Create a campaign"),
		okapi.DocTags("Campaigns"),
		okapi.DocRequestBody(CampaignRequest{}),
		okapi.DocResponse(http.StatusCreated, CampaignResponse{}),
	)
	g.group.Get("/campaigns", g.handleCampaignList,
		okapi.DocSummary("List campaigns"),
		okapi.DocTags("Campaigns"),
		okapi.DocResponse([]CampaignResponse{}),
	)
	g.group.Get("/campaigns/{id}", g.handleCampaignGet,
		okapi.DocSummary("Fetch a campaign"),
		okapi.DocTags("Campaigns"),
		okapi.DocPathParam("id", "string", "Campaign ID (UUID)"),
		okapi.DocResponse(CampaignResponse{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
	)
	g.group.Put("/campaigns/{id}", g.handleCampaignUpdate,
		okapi.DocSummary("Update a campaign"),
		okapi.DocTags("Campaigns"),
		okapi.DocPathParam("id", "string", "Campaign ID (UUID)"),
		okapi.DocRequestBody(CampaignRequest{}),
		okapi.DocResponse(CampaignResponse{}),
	)
	g.group.Delete("/campaigns/{id}", g.handleCampaignDelete,
		okapi.DocSummary("Delete a campaign"),
		okapi.DocTags("Campaigns"),
		okapi.DocPathParam("id", "string", "Campaign ID (UUID)"),
		okapi.DocResponse(StatusResponse{}),
	)

	g.group.Post("/vouchers", g.handleVoucherCreate,
		okapi.DocSummary("Create a voucher"),
		okapi.DocTags("Vouchers"),
		okapi.DocRequestBody(VoucherRequest{}),
		okapi.DocResponse(http.StatusCreated, VoucherResponse{}),
		okapi.DocResponse(http.StatusConflict, ErrorBody{}),
	)
	g.group.Get("/vouchers", g.handleVoucherList,
		okapi.DocSummary("List vouchers"),
		okapi.DocTags("Vouchers"),
		okapi.DocResponse([]VoucherResponse{}),
	)
	g.group.Get("/vouchers/code/{code}", g.handleVoucherGetByCode,
		okapi.DocSummary("Look up a voucher by its code"),
		okapi.DocTags("Vouchers"),
		okapi.DocPathParam("code", "string", "Voucher code"),
		okapi.DocResponse(VoucherResponse{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
	)
	g.group.Get("/vouchers/{id}", g.handleVoucherGet,
		okapi.DocSummary("Fetch a voucher"),
		okapi.DocTags("Vouchers"),
		okapi.DocPathParam("id", "string", "Voucher ID (UUID)"),
		okapi.DocResponse(VoucherResponse{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
	)
	g.group.Put("/vouchers/{id}", g.handleVoucherUpdate,
		okapi.DocSummary("Update a voucher"),
		okapi.DocTags("Vouchers"),
		okapi.DocPathParam("id", "string", "Voucher ID (UUID)"),
		okapi.DocRequestBody(VoucherRequest{}),
		okapi.DocResponse(VoucherResponse{}),
	)
	g.group.Delete("/vouchers/{id}", g.handleVoucherDelete,
		okapi.DocSummary("Delete a voucher"),
		okapi.DocTags("Vouchers"),
		okapi.DocPathParam("id", "string", "Voucher ID (UUID)"),
		okapi.DocResponse(StatusResponse{}),
	)

	g.group.Post("/ads", g.handleAdCreate,
		okapi.DocSummary("Create an ad banner"),
		okapi.DocTags("Ads"),
		okapi.DocRequestBody(AdRequest{}),
		okapi.DocResponse(http.StatusCreated, AdResponse{}),
	)
	g.group.Get("/ads", g.handleAdList,
		okapi.DocSummary("List ad banners"),
		okapi.DocTags("Ads"),
		okapi.DocResponse([]AdResponse{}),
	)
	g.group.Put("/ads/{id}", g.handleAdUpdate,
		okapi.DocSummary("Update an ad banner"),
		okapi.DocTags("Ads"),
		okapi.DocPathParam("id", "string", "Ad ID (UUID)"),
		okapi.DocRequestBody(AdRequest{}),
		okapi.DocResponse(AdResponse{}),
	)
	g.group.Delete("/ads/{id}", g.handleAdDelete,
		okapi.DocSummary("Delete an ad banner"),
		okapi.DocTags("Ads"),
		okapi.DocPathParam("id", "string", "Ad ID (UUID)"),
		okapi.DocResponse(StatusResponse{}),
	)
}

// --- Campaigns ---

// CampaignRequest creates or updates a campaign. Times are RFC 3339.
type CampaignRequest struct {
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	PointsPerUnit float64 `json:"points_per_unit"`
	StartsAt      string  `json:"starts_at"`
	EndsAt        string  `json:"ends_at"`
	Status        string  `json:"status,omitempty"` // draft, active or expired.
}

// CampaignResponse is the campaign wire form.
type CampaignResponse struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	PointsPerUnit float64 `json:"points_per_unit"`
	StartsAt      string  `json:"starts_at"`
	EndsAt        string  `json:"ends_at"`
	Status        string  `json:"status"`
	CreatedAt     string  `json:"created_at"`
}

func toCampaignResponse(cp *domain.Campaign) CampaignResponse {
	return CampaignResponse{
		ID:            cp.ID.String(),
		Name:          cp.Name,
		Description:   cp.Description,
		PointsPerUnit: cp.PointsPerUnit,
		StartsAt:      cp.StartsAt.Format(time.RFC3339),
		EndsAt:        cp.EndsAt.Format(time.RFC3339),
		Status:        string(cp.Status),
		CreatedAt:     cp.CreatedAt.Format(time.RFC3339),
	}
}

func campaignStatus(raw string) (domain.CampaignStatus, bool) {
	switch raw {
	case string(domain.CampaignDraft), string(domain.CampaignActive), string(domain.CampaignExpired):
		return domain.CampaignStatus(raw), true
	}
	return "", false
}

func (g *Gateway) handleCampaignCreate(c *okapi.Context) error {
	ctx, tc := g.scopedCtx(c)
	if err := g.requirePermission(ctx, c, security.PermCampaignsWrite); err != nil {
		return err
	}

	var req CampaignRequest
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("invalid request body")
	}
	if req.Name == "" {
		return c.AbortBadRequest("name is required")
	}
	if req.PointsPerUnit <= 0 {
		return c.AbortBadRequest("points_per_unit must be positive")
	}
	starts, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return c.AbortBadRequest("starts_at must be RFC 3339")
	}
	ends, err := time.Parse(time.RFC3339, req.EndsAt)
	if err != nil {
		return c.AbortBadRequest("ends_at must be RFC 3339")
	}
	if !ends.After(starts) {
		return c.AbortBadRequest("ends_at must be after starts_at")
	}

	status := domain.CampaignDraft
	if req.Status != "" {
		st, ok := campaignStatus(req.Status)
		if !ok {
			return c.AbortBadRequest("status must be draft, active or expired")
		}
		status = st
	}

	cp := &domain.Campaign{
		Name:          req.Name,
		Description:   req.Description,
		PointsPerUnit: req.PointsPerUnit,
		StartsAt:      starts,
		EndsAt:        ends,
		Status:        status,
	}
	if tc.TenantID != nil {
		cp.TenantID = *tc.TenantID
	}
	if err := g.store.Campaigns().Create(ctx, cp); err != nil {
		return g.fail(c, err)
	}
	return c.JSON(http.StatusCreated, toCampaignResponse(cp))
}

func (g *Gateway) handleCampaignList(c *okapi.Context) error {
	ctx, _ := g.scopedCtx(c)
	if err := g.requirePermission(ctx, c, security.PermCampaignsRead); err != nil {
		return err
	}

	campaigns, err := g.store.Campaigns().List(ctx)
	if err != nil {
		return g.fail(c, err)
	}
	resp := make([]CampaignResponse, len(campaigns))
	for i, cp := range campaigns {
		resp[i] = toCampaignResponse(cp)
	}
	return c.OK(resp)
}

func (g *Gateway) handleCampaignGet(c *okapi.Context) error {
	ctx, _ := g.scopedCtx(c)
	if err := g.requirePermission(ctx, c, security.PermCampaignsRead); err != nil {
		return err
	}
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}
	cp, err := g.store.Campaigns().Get(ctx, id)
	if err != nil {
		return g.fail(c, err)
	}
	return c.OK(toCampaignResponse(cp))
}

func (g *Gateway) handleCampaignUpdate(c *okapi.Context) error {
	ctx, _ := g.scopedCtx(c)
	if err := g.requirePermission(ctx, c, security.PermCampaignsWrite); err != nil {
		return err
	}
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}

	var req CampaignRequest
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("invalid request body")
	}

	cp, err := g.store.Campaigns().Get(ctx, id)
	if err != nil {
		return g.fail(c, err)
	}
	if req.Name != "" {
		cp.Name = req.Name
	}
	if req.Description != "" {
		cp.Description = req.Description
	}
	if req.PointsPerUnit > 0 {
		cp.PointsPerUnit = req.PointsPerUnit
	}
	if req.StartsAt != "" {
		starts, err := time.Parse(time.RFC3339, req.StartsAt)
		if err != nil {
			return c.AbortBadRequest("starts_at must be RFC 3339")
		}
		cp.StartsAt = starts
	}
	if req.EndsAt != "" {
		ends, err := time.Parse(time.RFC3339, req.EndsAt)
		if err != nil {
			return c.AbortBadRequest("ends_at must be RFC 3339")
		}
		cp.EndsAt = ends
	}
	if !cp.EndsAt.After(cp.StartsAt) {
		return c.AbortBadRequest("ends_at must be after starts_at")
	}
	if req.Status != "" {
		st, ok := campaignStatus(req.Status)
		if !ok {
			return c.AbortBadRequest("status must be draft, active or expired")
		}
		cp.Status = st
	}
	if err := g.store.Campaigns().Update(ctx, cp); err != nil {
		return g.fail(c, err)
	}
	return c.OK(toCampaignResponse(cp))
}

func (g *Gateway) handleCampaignDelete(c *okapi.Context) error {
	ctx, _ := g.scopedCtx(c)
	if err := g.requirePermission(ctx, c, security.PermCampaignsWrite); err != nil {
		return err
	}
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}
	if err := g.store.Campaigns().Delete(ctx, id); err != nil {
		return g.fail(c, err)
	}
	return c.OK(StatusResponse{Status: "deleted"})
}

// --- Vouchers ---

// VoucherRequest creates or updates a voucher. Stock -1 means unlimited.
type VoucherRequest struct {
	Code        string `json:"code"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	PointsCost  int64  `json:"points_cost"`
	Stock       *int   `json:"stock,omitempty"`
	ExpiresAt   string `json:"expires_at,omitempty"` // RFC 3339, empty = never.
	Status      string `json:"status,omitempty"`
}

// VoucherResponse is the voucher wire form.
type VoucherResponse struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	PointsCost  int64  `json:"points_cost"`
	Stock       int    `json:"stock"`
	ExpiresAt   string `json:"expires_at,omitempty"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

func toVoucherResponse(v *domain.Voucher) VoucherResponse {
	resp := VoucherResponse{
		ID:          v.ID.String(),
		Code:        v.Code,
		Title:       v.Title,
		Description: v.Description,
		PointsCost:  v.PointsCost,
		Stock:       v.Stock,
		Status:      string(v.Status),
		CreatedAt:   v.CreatedAt.Format(time.RFC3339),
	}
	if v.ExpiresAt != nil {
		resp.ExpiresAt = v.ExpiresAt.Format(time.RFC3339)
	}
	return resp
}

func voucherStatus(raw string) (domain.VoucherStatus, bool) {
	switch raw {
	case string(domain.VoucherActive), string(domain.VoucherExpired), string(domain.VoucherDisabled):
		return domain.VoucherStatus(raw), true
	}
	return "", false
}

func (g *Gateway) handleVoucherCreate(c *okapi.Context) error {
	ctx, tc := g.scopedCtx(c)
	if err := g.requirePermission(ctx, c, security.PermVouchersWrite); err != nil {
		return err
	}

	var req VoucherRequest
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("invalid request body")
	}
	if req.Code == "" || req.Title == "" {
		return c.AbortBadRequest("code and title are required")
	}
	if req.PointsCost <= 0 {
		return c.AbortBadRequest("points_cost must be positive")
	}

	v := &domain.Voucher{
		Code:        req.Code,
		Title:       req.Title,
		Description: req.Description,
		PointsCost:  req.PointsCost,
		Stock:       -1,
		Status:      domain.VoucherActive,
	}
	if req.Stock != nil {
		if *req.Stock < -1 {
			return c.AbortBadRequest("stock must be -1 (unlimited) or non-negative")
		}
		v.Stock = *req.Stock
	}
	if req.ExpiresAt != "" {
		exp, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			return c.AbortBadRequest("expires_at must be RFC 3339")
		}
		v.ExpiresAt = &exp
	}
	if req.Status != "" {
		st, ok := voucherStatus(req.Status)
		if !ok {
			return c.AbortBadRequest("status must be active, expired or disabled")
		}
		v.Status = st
	}
	if tc.TenantID != nil {
		v.TenantID = *tc.TenantID
	}
	if err := g.store.Vouchers().Create(ctx, v); err != nil {
		return g.fail(c, err)
	}
	return c.JSON(http.StatusCreated, toVoucherResponse(v))
}

func (g *Gateway) handleVoucherList(c *okapi.Context) error {
	ctx, _ := g.scopedCtx(c)
	if err := g.requirePermission(ctx, c, security.PermVouchersRead); err != nil {
		return err
	}

	vouchers, err := g.store.Vouchers().List(ctx)
	if err != nil {
		return g.fail(c, err)
	}
	resp := make([]VoucherResponse, len(vouchers))
	for i, v := range vouchers {
		resp[i] = toVoucherResponse(v)
	}
	return c.OK(resp)
}

func (g *Gateway) handleVoucherGet(c *okapi.Context) error {
	ctx, _ := g.scopedCtx(c)
	if err := g.requirePermission(ctx, c, security.PermVouchersRead); err != nil {
		return err
	}
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}
	v, err := g.store.Vouchers().Get(ctx, id)
	if err != nil {
		return g.fail(c, err)
	}
	return c.OK(toVoucherResponse(v))
}

func (g *Gateway) handleVoucherGetByCode(c *okapi.Context) error {
	ctx, _ := g.scopedCtx(c)
	if err := g.requirePermission(ctx, c, security.PermVouchersRead); err != nil {
		return err
	}
	code := c.Param("code")
	if code == "" {
		return c.AbortBadRequest("code is required")
	}
	v, err := g.store.Vouchers().GetByCode(ctx, code)
	if err != nil {
		return g.fail(c, err)
	}
	return c.OK(toVoucherResponse(v))
}

func (g *Gateway) handleVoucherUpdate(c *okapi.Context) error {
	ctx, _ := g.scopedCtx(c)
	if err := g.requirePermission(ctx, c, security.PermVouchersWrite); err != nil {
		return err
	}
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}

	var req VoucherRequest
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("invalid request body")
	}

	v, err := g.store.Vouchers().Get(ctx, id)
	if err != nil {
		return g.fail(c, err)
	}
	if req.Title != "" {
		v.Title = req.Title
	}
	if req.Description != "" {
		v.Description = req.Description
	}
	if req.PointsCost > 0 {
		v.PointsCost = req.PointsCost
	}
	if req.Stock != nil {
		if *req.Stock < -1 {
			return c.AbortBadRequest("stock must be -1 (unlimited) or non-negative")
		}
		v.Stock = *req.Stock
	}
	if req.ExpiresAt != "" {
		exp, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			return c.AbortBadRequest("expires_at must be RFC 3339")
		}
		v.ExpiresAt = &exp
	}
	if req.Status != "" {
		st, ok := voucherStatus(req.Status)
		if !ok {
			return c.AbortBadRequest("status must be active, expired or disabled")
		}
		v.Status = st
	}
	if err := g.store.Vouchers().Update(ctx, v); err != nil {
		return g.fail(c, err)
	}
	return c.OK(toVoucherResponse(v))
}

func (g *Gateway) handleVoucherDelete(c *okapi.Context) error {
	ctx, _ := g.scopedCtx(c)
	if err := g.requirePermission(ctx, c, security.PermVouchersWrite); err != nil {
		return err
	}
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}
	if err := g.store.Vouchers().Delete(ctx, id); err != nil {
		return g.fail(c, err)
	}
	return c.OK(StatusResponse{Status: "deleted"})
}

// --- Ads ---

// AdRequest creates or updates an ad banner.
type AdRequest struct {
	Title     string `json:"title"`
	ImageURL  string `json:"image_url"`
	TargetURL string `json:"target_url,omitempty"`
	Enabled   *bool  `json:"enabled,omitempty"`
	StartsAt  string `json:"starts_at,omitempty"`
	EndsAt    string `json:"ends_at,omitempty"`
}

// AdResponse is the ad wire form.
type AdResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	ImageURL  string `json:"image_url"`
	TargetURL string `json:"target_url,omitempty"`
	Enabled   bool   `json:"enabled"`
	StartsAt  string `json:"starts_at,omitempty"`
	EndsAt    string `json:"ends_at,omitempty"`
	CreatedAt string `json:"created_at"`
}

func toAdResponse(a *domain.Ad) AdResponse {
	resp := AdResponse{
		ID:        a.ID.String(),
		Title:     a.Title,
		ImageURL:  a.ImageURL,
		TargetURL: a.TargetURL,
		Enabled:   a.Enabled,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
	}
	if a.StartsAt != nil {
		resp.StartsAt = a.StartsAt.Format(time.RFC3339)
	}
	if a.EndsAt != nil {
		resp.EndsAt = a.EndsAt.Format(time.RFC3339)
	}
	return resp
}

func (g *Gateway) handleAdCreate(c *okapi.Context) error {
	ctx, tc := g.scopedCtx(c)
	if err := g.requirePermission(ctx, c, security.PermAdsWrite); err != nil {
		return err
	}

	var req AdRequest
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("invalid request body")
	}
	if req.Title == "" || req.ImageURL == "" {
		return c.AbortBadRequest("title and image_url are required")
	}

	ad := &domain.Ad{
		Title:     req.Title,
		ImageURL:  req.ImageURL,
		TargetURL: req.TargetURL,
		Enabled:   req.Enabled == nil || *req.Enabled,
	}
	if req.StartsAt != "" {
		starts, err := time.Parse(time.RFC3339, req.StartsAt)
		if err != nil {
			return c.AbortBadRequest("starts_at must be RFC 3339")
		}
		ad.StartsAt = &starts
	}
	if req.EndsAt != "" {
		ends, err := time.Parse(time.RFC3339, req.EndsAt)
		if err != nil {
			return c.AbortBadRequest("ends_at must be RFC 3339")
		}
		ad.EndsAt = &ends
	}
	if tc.TenantID != nil {
		ad.TenantID = *tc.TenantID
	}
	if err := g.store.Ads().Create(ctx, ad); err != nil {
		return g.fail(c, err)
	}
	return c.JSON(http.StatusCreated, toAdResponse(ad))
}

func (g *Gateway) handleAdList(c *okapi.Context) error {
	ctx, _ := g.scopedCtx(c)

	ads, err := g.store.Ads().List(ctx)
	if err != nil {
		return g.fail(c, err)
	}
	resp := make([]AdResponse, len(ads))
	for i, a := range ads {
		resp[i] = toAdResponse(a)
	}
	return c.OK(resp)
}

func (g *Gateway) handleAdUpdate(c *okapi.Context) error {
	ctx, _ := g.scopedCtx(c)
	if err := g.requirePermission(ctx, c, security.PermAdsWrite); err != nil {
		return err
	}
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}

	var req AdRequest
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("invalid request body")
	}

	ad, err := g.store.Ads().Get(ctx, id)
	if err != nil {
		return g.fail(c, err)
	}
	if req.Title != "" {
		ad.Title = req.Title
	}
	if req.ImageURL != "" {
		ad.ImageURL = req.ImageURL
	}
	if req.TargetURL != "" {
		ad.TargetURL = req.TargetURL
	}
	if req.Enabled != nil {
		ad.Enabled = *req.Enabled
	}
	if req.StartsAt != "" {
		starts, err := time.Parse(time.RFC3339, req.StartsAt)
		if err != nil {
			return c.AbortBadRequest("starts_at must be RFC 3339")
		}
		ad.StartsAt = &starts
	}
	if req.EndsAt != "" {
		ends, err := time.Parse(time.RFC3339, req.EndsAt)
		if err != nil {
			return c.AbortBadRequest("ends_at must be RFC 3339")
		}
		ad.EndsAt = &ends
	}
	if err := g.store.Ads().Update(ctx, ad); err != nil {
		return g.fail(c, err)
	}
	return c.OK(toAdResponse(ad))
}

func (g *Gateway) handleAdDelete(c *okapi.Context) error {
	ctx, _ := g.scopedCtx(c)
	if err := g.requirePermission(ctx, c, security.PermAdsWrite); err != nil {
		return err
	}
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}
	if err := g.store.Ads().Delete(ctx, id); err != nil {
		return g.fail(c, err)
	}
	return c.OK(StatusResponse{Status: "deleted"})
}
