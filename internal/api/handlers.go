// Package api exposes the HTTP tracking endpoint that feeds the activity queue.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pateepk/AgileSite-sub083/internal/auth"
	"github.com/pateepk/AgileSite-sub083/internal/domain"
)

const maxBodyBytes = 64 << 10

// Recorder accepts activities for asynchronous persistence.
type Recorder interface {
	Save(*domain.Activity) error
}

// Handler coordinates HTTP requests with the activity repository.
type Handler struct {
	recorder Recorder
	now      func() time.Time
	log      *logrus.Entry
}

// NewHandler builds a Handler.
func NewHandler(recorder Recorder, log *logrus.Entry) *Handler {
	if log == nil {
		log = logrus.StandardLogger().WithField("component", "api")
	}
	return &Handler{recorder: recorder, now: time.Now, log: log}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/activities", h.activities)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) activities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeActivitiesWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope activities:write required")
		return
	}

	var req TrackActivityRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	activity := req.toActivity(h.now().UTC())
	if claims.SiteID != 0 {
		activity.SiteID = claims.SiteID
	}

	if err := h.recorder.Save(activity); err != nil {
		var invalid *domain.ErrInvalidArgument
		if errors.As(err, &invalid) {
			writeError(w, http.StatusBadRequest, "validation_failed", invalid.Error())
			return
		}
		h.log.WithError(err).Error("failed to queue activity")
		writeError(w, http.StatusInternalServerError, "server_error", "unable to record activity")
		return
	}

	writeJSON(w, http.StatusAccepted, TrackActivityResponse{Status: "queued"})
}

// TrackActivityRequest is the body accepted by POST /v1/activities.
type TrackActivityRequest struct {
	Type          string     `json:"activity_type"`
	Created       *time.Time `json:"created,omitempty"`
	ContactID     int64      `json:"contact_id"`
	SiteID        int        `json:"site_id"`
	NodeID        int        `json:"node_id"`
	ItemID        int        `json:"item_id"`
	ItemDetailID  int        `json:"item_detail_id"`
	Value         string     `json:"value"`
	Title         string     `json:"title"`
	URL           string     `json:"url"`
	URLReferrer   string     `json:"url_referrer"`
	Culture       string     `json:"culture"`
	Campaign      string     `json:"campaign"`
	UTMSource     string     `json:"utm_source"`
	UTMContent    string     `json:"utm_content"`
	ABVariantName string     `json:"ab_variant_name"`
	Comment       string     `json:"comment"`
}

// Validate ensures request correctness.
func (r TrackActivityRequest) Validate() error {
	if strings.TrimSpace(r.Type) == "" {
		return errors.New("activity_type is required")
	}
	if r.ContactID < 0 {
		return errors.New("contact_id must be >= 0")
	}
	if r.SiteID < 0 || r.NodeID < 0 || r.ItemID < 0 || r.ItemDetailID < 0 {
		return errors.New("site_id, node_id, item_id and item_detail_id must be >= 0")
	}
	return nil
}

func (r TrackActivityRequest) toActivity(now time.Time) *domain.Activity {
	created := now
	if r.Created != nil && !r.Created.IsZero() {
		created = r.Created.UTC()
	}
	return &domain.Activity{
		Type:          strings.TrimSpace(r.Type),
		Created:       created,
		ContactID:     r.ContactID,
		SiteID:        r.SiteID,
		NodeID:        r.NodeID,
		ItemID:        r.ItemID,
		ItemDetailID:  r.ItemDetailID,
		Value:         r.Value,
		Title:         r.Title,
		URL:           r.URL,
		URLReferrer:   r.URLReferrer,
		Culture:       r.Culture,
		Campaign:      r.Campaign,
		UTMSource:     r.UTMSource,
		UTMContent:    r.UTMContent,
		ABVariantName: r.ABVariantName,
		Comment:       r.Comment,
	}
}

// TrackActivityResponse describes the response body for track.
type TrackActivityResponse struct {
	Status string `json:"status"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
