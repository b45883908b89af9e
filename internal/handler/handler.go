package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"staking-rewards-system/internal/models"
	"staking-rewards-system/internal/repository"
	"staking-rewards-system/internal/scheduler"
)

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeResult(w http.ResponseWriter, success bool, data interface{}, message string) {
	body := map[string]interface{}{
		"success": success,
		"data":    data,
	}
	if message != "" {
		body["message"] = message
	}
	writeJSON(w, http.StatusOK, body)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// pathUserID extracts the user id from /api/{resource}/{user_id} paths.
func pathUserID(r *http.Request) string {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}

type CronHandler struct {
	scheduler *scheduler.CronScheduler
}

func NewCronHandler(s *scheduler.CronScheduler) *CronHandler {
	return &CronHandler{scheduler: s}
}

// TriggerRewardCalculation runs the reward cron synchronously and
// returns the full result payload. 409 when a run is already in flight;
// partial failures still answer 200 with success=false and the error
// list embedded.
func (h *CronHandler) TriggerRewardCalculation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	result, err := h.scheduler.TriggerRewardCalculation(r.Context())
	if err != nil {
		if errors.Is(err, scheduler.ErrAlreadyRunning) {
			writeError(w, http.StatusConflict, "reward calculation already running")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to trigger reward calculation: "+err.Error())
		return
	}

	writeResult(w, result.Success, result, "reward calculation completed")
}

func (h *CronHandler) TriggerDailyStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	result := h.scheduler.TriggerDailyStats(r.Context())
	writeResult(w, result.Success, result, "daily statistics completed")
}

func (h *CronHandler) TriggerWeeklyStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	result := h.scheduler.TriggerWeeklyStats(r.Context())
	writeResult(w, result.Success, result, "weekly statistics completed")
}

func (h *CronHandler) TriggerMonthlyStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	result := h.scheduler.TriggerMonthlyStats(r.Context())
	writeResult(w, result.Success, result, "monthly statistics completed")
}

func (h *CronHandler) TriggerSnapshots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	result, deleted := h.scheduler.TriggerSnapshots(r.Context())
	writeResult(w, result.Success, map[string]interface{}{
		"snapshots": result,
		"purged":    deleted,
	}, "portfolio snapshots completed")
}

func (h *CronHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeResult(w, true, h.scheduler.Status(), "")
}

func (h *CronHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	healthy := h.scheduler.Healthy()
	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"healthy": healthy,
			"status":  h.scheduler.Status(),
		},
	})
}

type RewardsHandler struct {
	rewardRepo *repository.RewardRepository
}

func NewRewardsHandler(rewardRepo *repository.RewardRepository) *RewardsHandler {
	return &RewardsHandler{rewardRepo: rewardRepo}
}

func (h *RewardsHandler) ListRewards(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID := pathUserID(r)
	if userID == "" {
		writeError(w, http.StatusBadRequest, "invalid path format, expected /api/rewards/{user_id}")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	ctx := r.Context()
	rewards, err := h.rewardRepo.ByUserPaginated(ctx, userID, offset, pageSize)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list rewards: "+err.Error())
		return
	}
	total, err := h.rewardRepo.CountByUser(ctx, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count rewards: "+err.Error())
		return
	}

	writeResult(w, true, map[string]interface{}{
		"items":    rewards,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	}, "")
}

type StatisticsHandler struct {
	statsRepo *repository.StatisticsRepository
}

func NewStatisticsHandler(statsRepo *repository.StatisticsRepository) *StatisticsHandler {
	return &StatisticsHandler{statsRepo: statsRepo}
}

func (h *StatisticsHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID := pathUserID(r)
	if userID == "" {
		writeError(w, http.StatusBadRequest, "invalid path format, expected /api/statistics/{user_id}")
		return
	}

	periodType := models.PeriodType(r.URL.Query().Get("period_type"))
	switch periodType {
	case "":
		periodType = models.PeriodDaily
	case models.PeriodDaily, models.PeriodWeekly, models.PeriodMonthly:
	default:
		writeError(w, http.StatusBadRequest, "period_type must be daily, weekly or monthly")
		return
	}

	stats, err := h.statsRepo.LatestByUser(r.Context(), userID, periodType)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get statistics: "+err.Error())
		return
	}
	if stats == nil {
		writeError(w, http.StatusNotFound, "no statistics recorded for user")
		return
	}

	writeResult(w, true, stats, "")
}

type PortfolioHandler struct {
	snapshotRepo *repository.SnapshotRepository
}

func NewPortfolioHandler(snapshotRepo *repository.SnapshotRepository) *PortfolioHandler {
	return &PortfolioHandler{snapshotRepo: snapshotRepo}
}

func (h *PortfolioHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID := pathUserID(r)
	if userID == "" {
		writeError(w, http.StatusBadRequest, "invalid path format, expected /api/portfolio/{user_id}")
		return
	}

	snapshot, err := h.snapshotRepo.LatestByUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get portfolio snapshot: "+err.Error())
		return
	}
	if snapshot == nil {
		writeError(w, http.StatusNotFound, "no portfolio snapshot recorded for user")
		return
	}

	writeResult(w, true, snapshot, "")
}

func HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
