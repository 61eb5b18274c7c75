package api

import (
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rawblock/inferd/internal/coordinator"
	"github.com/rawblock/inferd/pkg/models"
)

// APIHandler wires HTTP requests onto the coordinator Engine. store is
// held separately from engine for the read-only endpoints (roster
// listing, claimable summary) that have no corresponding spec mutator and
// so read the Store directly rather than growing Engine's public surface
// for them.
type APIHandler struct {
	engine *coordinator.Engine
	store  coordinator.Store
	wsHub  *Hub
}

func SetupRouter(engine *coordinator.Engine, store coordinator.Store, wsHub *Hub) *gin.Engine {
	r := gin.Default()

	// Enable CORS — configurable via ALLOWED_ORIGINS env var.
	// Production: ALLOWED_ORIGINS=https://inferd.example,https://www.inferd.example
	// Development: ALLOWED_ORIGINS=http://localhost:3000 (or leave empty for *)
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	handler := &APIHandler{engine: engine, store: store, wsHub: wsHub}

	// ── Public endpoints (no auth) ─────────────────────────────
	pub := r.Group("/api/v1")
	{
		pub.GET("/health", handler.handleHealth)
		pub.GET("/stream", wsHub.Subscribe)
		pub.GET("/models/:model/roster", handler.handleModelRoster)
		pub.GET("/miners/:miner/claimable", handler.handleMinerClaimable)
	}

	// ── Protected endpoints (require bearer token if API_AUTH_TOKEN set) ──
	auth := r.Group("/api/v1")
	auth.Use(AuthMiddleware())
	auth.Use(NewRateLimiter(120, 20).Middleware())
	{
		auth.POST("/miners/register", handler.handleRegisterMiner)
		auth.POST("/miners/join", handler.handleJoinForMinting)
		auth.POST("/miners/top_up", handler.handleTopUp)
		auth.POST("/miners/request_unstake", handler.handleRequestUnstake)
		auth.POST("/miners/claim_unstaked", handler.handleClaimUnstaked)
		auth.POST("/miners/claim_reward", handler.handleClaimReward)

		auth.POST("/inferences", handler.handleInfer)
		auth.POST("/inferences/top_up", handler.handleTopUpInfer)
		auth.POST("/assignments/seize", handler.handleSeizeMinerRole)
		auth.POST("/assignments/submit_solution", handler.handleSubmitSolution)
		auth.POST("/assignments/commit", handler.handleCommit)
		auth.POST("/assignments/reveal", handler.handleReveal)
		auth.POST("/inferences/resolve", handler.handleResolveInference)

		auth.POST("/epoch/update", handler.handleUpdateEpoch)

		admin := auth.Group("/admin")
		{
			admin.POST("/init", handler.handleInit)
			admin.POST("/models", handler.handleAddModel)
			admin.DELETE("/models/:model", handler.handleRemoveModel)
			admin.POST("/params/min_miner_stake", handler.handleSetMinMinerStake)
			admin.POST("/params/fine_percent", handler.handleSetFinePercentage)
			admin.POST("/params/penalty_duration", handler.handleSetPenaltyDuration)
			admin.POST("/params/min_fee_to_use", handler.handleSetMinFeeToUse)
			admin.POST("/params/l2_owner", handler.handleSetL2Owner)
			admin.POST("/params/treasury", handler.handleSetTreasury)
			admin.POST("/params/fee_split", handler.handleSetFeeRatioMinerValidator)
			admin.POST("/params/dao_token_reward", handler.handleSetDaoTokenReward)
		}
	}

	return r
}

// ── error mapping ───────────────────────────────────────────────────

// statusFor maps the coordinator's sentinel error taxonomy (§7) onto HTTP
// status codes. Every other error — the rest of the taxonomy and
// store/ledger failures alike — maps to 400; operational faults are not
// told apart from request errors here.
func statusFor(err error) int {
	switch {
	case errors.Is(err, coordinator.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, coordinator.ErrModelNotExist),
		errors.Is(err, coordinator.ErrMinerNotRegistered),
		errors.Is(err, coordinator.ErrWrongInferenceId),
		errors.Is(err, coordinator.ErrWrongAssignmentId),
		errors.Is(err, coordinator.ErrNoModelRegistered):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func parseID(c *gin.Context, s string) (coordinator.ID, bool) {
	id, err := coordinator.IDFromString(s)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return coordinator.ID{}, false
	}
	return id, true
}

func parseDigest(c *gin.Context, s string) (coordinator.Digest, bool) {
	id, ok := parseID(c, s)
	if !ok {
		return coordinator.Digest{}, false
	}
	return coordinator.Digest(id), true
}

// ── health ──────────────────────────────────────────────────────────

func (h *APIHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "operational",
		"engine": "inferd coordinator",
	})
}

// ── miner lifecycle (§4.1) ──────────────────────────────────────────

func (h *APIHandler) handleRegisterMiner(c *gin.Context) {
	var req models.RegisterMinerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	caller, ok := parseID(c, req.Miner)
	if !ok {
		return
	}
	model, err := h.engine.RegisterMiner(c.Request.Context(), caller, req.Stake)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.RegisterMinerResponse{Model: model.String()})
}

func (h *APIHandler) handleJoinForMinting(c *gin.Context) {
	var req models.JoinForMintingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	caller, ok := parseID(c, req.Miner)
	if !ok {
		return
	}
	if err := h.engine.JoinForMinting(c.Request.Context(), caller); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "joined"})
}

func (h *APIHandler) handleTopUp(c *gin.Context) {
	var req models.TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	caller, ok := parseID(c, req.Miner)
	if !ok {
		return
	}
	if err := h.engine.TopUp(c.Request.Context(), caller, req.Amount); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "topped_up"})
}

func (h *APIHandler) handleRequestUnstake(c *gin.Context) {
	var req models.RequestUnstakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	caller, ok := parseID(c, req.Miner)
	if !ok {
		return
	}
	if err := h.engine.RequestUnstake(c.Request.Context(), caller, req.RosterIndex); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "unstaking"})
}

func (h *APIHandler) handleClaimUnstaked(c *gin.Context) {
	var req models.ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	caller, ok := parseID(c, req.Miner)
	if !ok {
		return
	}
	if err := h.engine.ClaimUnstaked(c.Request.Context(), caller); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "claimed"})
}

func (h *APIHandler) handleClaimReward(c *gin.Context) {
	var req models.ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	caller, ok := parseID(c, req.Miner)
	if !ok {
		return
	}
	if err := h.engine.ClaimReward(c.Request.Context(), caller); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "claimed"})
}

// ── inference state machine (§4.3) ──────────────────────────────────

func (h *APIHandler) handleInfer(c *gin.Context) {
	var req models.InferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	creator, ok := parseID(c, req.Creator)
	if !ok {
		return
	}
	model, ok := parseID(c, req.Model)
	if !ok {
		return
	}
	var referrer coordinator.ID
	if req.Referrer != "" {
		referrer, ok = parseID(c, req.Referrer)
		if !ok {
			return
		}
	}
	err := h.engine.Infer(c.Request.Context(), req.InferenceID, creator, model, []byte(req.Input), req.Value, referrer)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "submitted"})
}

func (h *APIHandler) handleTopUpInfer(c *gin.Context) {
	var req models.TopUpInferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.engine.TopUpInfer(c.Request.Context(), req.InferenceID, req.Value); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "topped_up"})
}

func (h *APIHandler) handleSeizeMinerRole(c *gin.Context) {
	var req models.SeizeMinerRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	caller, ok := parseID(c, req.Miner)
	if !ok {
		return
	}
	if err := h.engine.SeizeMinerRole(c.Request.Context(), caller, req.AssignmentID, req.InferenceID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "seized"})
}

func (h *APIHandler) handleSubmitSolution(c *gin.Context) {
	var req models.SubmitSolutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	caller, ok := parseID(c, req.Miner)
	if !ok {
		return
	}
	if err := h.engine.SubmitSolution(c.Request.Context(), caller, req.AssignmentID, req.InferenceID, []byte(req.Data)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "submitted"})
}

func (h *APIHandler) handleCommit(c *gin.Context) {
	var req models.CommitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	caller, ok := parseID(c, req.Validator)
	if !ok {
		return
	}
	commitment, ok := parseDigest(c, req.Commitment)
	if !ok {
		return
	}
	if err := h.engine.Commit(c.Request.Context(), caller, req.AssignmentID, req.InferenceID, commitment); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "committed"})
}

func (h *APIHandler) handleReveal(c *gin.Context) {
	var req models.RevealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	caller, ok := parseID(c, req.Validator)
	if !ok {
		return
	}
	if err := h.engine.Reveal(c.Request.Context(), caller, req.AssignmentID, req.InferenceID, req.Nonce, []byte(req.Data)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "revealed"})
}

func (h *APIHandler) handleResolveInference(c *gin.Context) {
	var req models.ResolveInferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.engine.ResolveInference(c.Request.Context(), req.InferenceID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "resolved"})
}

// ── epoch ────────────────────────────────────────────────────────────

func (h *APIHandler) handleUpdateEpoch(c *gin.Context) {
	var req models.UpdateEpochRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.engine.UpdateEpoch(c.Request.Context(), req.ExpectedEpochID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "advanced"})
}

// ── admin (§4.1, §4.6) ───────────────────────────────────────────────

func (h *APIHandler) handleInit(c *gin.Context) {
	var req models.InitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	admin, ok := parseID(c, req.Admin)
	if !ok {
		return
	}
	token, ok := parseID(c, req.Token)
	if !ok {
		return
	}
	l2Owner, ok := parseID(c, req.L2Owner)
	if !ok {
		return
	}
	treasury, ok := parseID(c, req.Treasury)
	if !ok {
		return
	}
	p := coordinator.InitParams{
		Admin:    admin,
		Token:    token,
		L2Owner:  l2Owner,
		Treasury: treasury,
		Staking: coordinator.StakingParams{
			MinMinerStake: req.MinMinerStake,
			UnstakeDelay:  req.UnstakeDelay,
		},
		Epoch: coordinator.EpochParams{
			DurationSlots:        req.EpochDurationSlots,
			RewardPerEpoch:       req.RewardPerEpoch,
			FinePercentBP:        req.FinePercentBP,
			PenaltyDurationSlots: req.PenaltyDurationSlots,
		},
		Fees: coordinator.FeeParams{
			MinFeeToUse:           req.MinFeeToUse,
			FeeL2BP:               req.FeeL2BP,
			FeeTreasuryBP:         req.FeeTreasuryBP,
			MinerValidatorSplitBP: req.MinerValidatorSplitBP,
		},
		Timing: coordinator.InferenceTiming{
			SubmitDuration: req.SubmitDuration,
			CommitDuration: req.CommitDuration,
			RevealDuration: req.RevealDuration,
		},
		Committee: coordinator.CommitteeParams{RequiredMiners: req.RequiredMiners},
		DaoToken: coordinator.DaoTokenParams{
			Reward: req.DaoTokenReward,
			Split: coordinator.DaoTokenRoleSplit{
				MinerBP:    req.DaoMinerBP,
				UserBP:     req.DaoUserBP,
				ReferrerBP: req.DaoReferrerBP,
				RefereeBP:  req.DaoRefereeBP,
				L2OwnerBP:  req.DaoL2OwnerBP,
			},
		},
	}
	if err := h.engine.Init(c.Request.Context(), p); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "initialized"})
}

func (h *APIHandler) handleAddModel(c *gin.Context) {
	var req models.AddModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	admin, ok := parseID(c, req.Admin)
	if !ok {
		return
	}
	model, ok := parseID(c, req.Model)
	if !ok {
		return
	}
	if err := h.engine.AddModel(c.Request.Context(), admin, model); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "added"})
}

func (h *APIHandler) handleRemoveModel(c *gin.Context) {
	admin := c.Query("admin")
	adminID, ok := parseID(c, admin)
	if !ok {
		return
	}
	model, ok := parseID(c, c.Param("model"))
	if !ok {
		return
	}
	if err := h.engine.RemoveModel(c.Request.Context(), adminID, model); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

func (h *APIHandler) handleSetMinMinerStake(c *gin.Context) {
	var req models.SetUint64Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	admin, ok := parseID(c, req.Admin)
	if !ok {
		return
	}
	if err := h.engine.SetMinMinerStake(c.Request.Context(), admin, req.Value); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *APIHandler) handleSetFinePercentage(c *gin.Context) {
	var req models.SetUint64Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	admin, ok := parseID(c, req.Admin)
	if !ok {
		return
	}
	if err := h.engine.SetFinePercentage(c.Request.Context(), admin, req.Value); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *APIHandler) handleSetPenaltyDuration(c *gin.Context) {
	var req models.SetUint64Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	admin, ok := parseID(c, req.Admin)
	if !ok {
		return
	}
	if err := h.engine.SetPenaltyDuration(c.Request.Context(), admin, req.Value); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *APIHandler) handleSetMinFeeToUse(c *gin.Context) {
	var req models.SetUint64Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	admin, ok := parseID(c, req.Admin)
	if !ok {
		return
	}
	if err := h.engine.SetMinFeeToUse(c.Request.Context(), admin, req.Value); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *APIHandler) handleSetL2Owner(c *gin.Context) {
	var req models.SetIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	admin, ok := parseID(c, req.Admin)
	if !ok {
		return
	}
	id, ok := parseID(c, req.ID)
	if !ok {
		return
	}
	if err := h.engine.SetL2Owner(c.Request.Context(), admin, id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *APIHandler) handleSetTreasury(c *gin.Context) {
	var req models.SetIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	admin, ok := parseID(c, req.Admin)
	if !ok {
		return
	}
	id, ok := parseID(c, req.ID)
	if !ok {
		return
	}
	if err := h.engine.SetTreasury(c.Request.Context(), admin, id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *APIHandler) handleSetFeeRatioMinerValidator(c *gin.Context) {
	var req models.SetUint64Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	admin, ok := parseID(c, req.Admin)
	if !ok {
		return
	}
	if err := h.engine.SetFeeRatioMinerValidator(c.Request.Context(), admin, req.Value); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *APIHandler) handleSetDaoTokenReward(c *gin.Context) {
	var req models.SetUint64Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	admin, ok := parseID(c, req.Admin)
	if !ok {
		return
	}
	if err := h.engine.SetDaoTokenReward(c.Request.Context(), admin, req.Value); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// ── read models (supplemented features, not spec.md operations) ─────

func (h *APIHandler) handleModelRoster(c *gin.Context) {
	model, ok := parseID(c, c.Param("model"))
	if !ok {
		return
	}
	roster, err := h.store.GetRoster(c.Request.Context(), model)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	miners := make([]string, 0, len(roster))
	for _, id := range roster {
		miners = append(miners, id.String())
	}
	c.JSON(http.StatusOK, models.ModelRosterResponse{Model: model.String(), Miners: miners})
}

func (h *APIHandler) handleMinerClaimable(c *gin.Context) {
	minerID, ok := parseID(c, c.Param("miner"))
	if !ok {
		return
	}
	m, found, err := h.store.GetMiner(c.Request.Context(), minerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": coordinator.ErrMinerNotRegistered.Error()})
		return
	}

	accrued := m.AccruedReward
	if m.IsActive {
		if g, err := h.store.GetGlobalState(c.Request.Context()); err == nil && g != nil {
			if g.Epoch.LastEpoch > m.LastClaimedEpoch {
				accrued += (g.Epoch.LastEpoch - m.LastClaimedEpoch) * g.Epoch.RewardPerEpoch
			}
		}
	}

	c.JSON(http.StatusOK, models.MinerClaimableResponse{
		Miner:             m.ID.String(),
		Stake:             m.Stake,
		AccruedReward:     accrued,
		IsActive:          m.IsActive,
		UnstakingDeadline: m.UnstakingDeadline,
		ReactivationAfter: m.ReactivationAfter,
	})
}
