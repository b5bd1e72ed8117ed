package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vani-hq/vani/internal/access"
	"github.com/vani-hq/vani/internal/api/dto"
	"github.com/vani-hq/vani/internal/api/middleware"
	"github.com/vani-hq/vani/internal/database/models"
	"github.com/vani-hq/vani/pkg/crypto"
	"gorm.io/gorm"
)

// CredentialHandler manages per-industry channel sender credentials. The
// payload is encrypted at rest and never echoed back in responses.
type CredentialHandler struct {
	db            *gorm.DB
	accessService *access.Service
	encryptor     *crypto.Encryptor
}

func NewCredentialHandler(db *gorm.DB, accessService *access.Service, encryptor *crypto.Encryptor) *CredentialHandler {
	return &CredentialHandler{db: db, accessService: accessService, encryptor: encryptor}
}

type CreateCredentialRequest struct {
	Provider   string          `json:"provider"`
	Name       string          `json:"name"`
	IndustryID *string         `json:"industry_id,omitempty"`
	Payload    json.RawMessage `json:"payload"`
}

func (r CreateCredentialRequest) Validate() map[string]string {
	errs := make(map[string]string)
	switch models.CredentialProvider(r.Provider) {
	case models.CredentialProviderResend, models.CredentialProviderTwilio:
	default:
		errs["provider"] = "Provider must be resend or twilio"
	}
	if r.Name == "" {
		errs["name"] = "Name is required"
	}
	if len(r.Payload) == 0 {
		errs["payload"] = "Payload is required"
	} else {
		switch models.CredentialProvider(r.Provider) {
		case models.CredentialProviderResend:
			var c models.ResendCredential
			if err := json.Unmarshal(r.Payload, &c); err != nil || c.APIKey == "" {
				errs["payload"] = "Payload must carry api_key and from_address"
			}
		case models.CredentialProviderTwilio:
			var c models.TwilioCredential
			if err := json.Unmarshal(r.Payload, &c); err != nil || c.AccountSID == "" || c.AuthToken == "" {
				errs["payload"] = "Payload must carry account_sid, auth_token and whatsapp_from"
			}
		}
	}
	if r.IndustryID != nil && *r.IndustryID != "" {
		if _, err := uuid.Parse(*r.IndustryID); err != nil {
			errs["industry_id"] = "Invalid ID format"
		}
	}
	return errs
}

type CredentialResponse struct {
	ID         string  `json:"id"`
	Provider   string  `json:"provider"`
	Name       string  `json:"name"`
	IndustryID *string `json:"industry_id,omitempty"`
	IsActive   bool    `json:"is_active"`
	CreatedAt  string  `json:"created_at"`
}

func credentialToResponse(c *models.ChannelCredential) CredentialResponse {
	resp := CredentialResponse{
		ID:        c.ID.String(),
		Provider:  string(c.Provider),
		Name:      c.Name,
		IsActive:  c.IsActive,
		CreatedAt: c.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if c.IndustryID != nil {
		s := c.IndustryID.String()
		resp.IndustryID = &s
	}
	return resp
}

// List handles GET /api/v1/credentials
func (h *CredentialHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	_, decision, err := h.accessService.Authorize(r.Context(), userID, models.UseCaseUserAdministration, nil)
	if err != nil {
		writeAccessError(w, err)
		return
	}

	query := h.db.WithContext(r.Context()).Model(&models.ChannelCredential{})
	query = decision.Scope(query)

	var credentials []models.ChannelCredential
	if err := query.Order("created_at DESC").Find(&credentials).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to list credentials"))
		return
	}

	response := make([]CredentialResponse, len(credentials))
	for i := range credentials {
		response[i] = credentialToResponse(&credentials[i])
	}

	writeJSON(w, http.StatusOK, dto.PaginatedResponse{
		Success: true,
		Data:    response,
		Total:   int64(len(response)),
		Page:    1,
		PerPage: 100,
	})
}

// Create handles POST /api/v1/credentials
func (h *CredentialHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req CreateCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid request body"))
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ValidationError(errs))
		return
	}

	industryID := parseOptionalID(req.IndustryID)
	if _, _, err := h.accessService.Authorize(r.Context(), userID, models.UseCaseUserAdministration, industryID); err != nil {
		writeAccessError(w, err)
		return
	}

	encrypted, err := h.encryptor.EncryptString(string(req.Payload))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to store credential"))
		return
	}

	credential := models.ChannelCredential{
		IndustryID:       industryID,
		Provider:         models.CredentialProvider(req.Provider),
		Name:             req.Name,
		EncryptedPayload: encrypted,
		IsActive:         true,
		CreatedByID:      userID,
	}

	if err := h.db.WithContext(r.Context()).Create(&credential).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to create credential"))
		return
	}

	writeJSON(w, http.StatusCreated, credentialToResponse(&credential))
}

// Delete handles DELETE /api/v1/credentials/{id} (deactivate, keep the row).
func (h *CredentialHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	credentialID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid credential ID"))
		return
	}

	_, decision, err := h.accessService.Authorize(r.Context(), userID, models.UseCaseUserAdministration, nil)
	if err != nil {
		writeAccessError(w, err)
		return
	}

	query := decision.Scope(h.db.WithContext(r.Context()).Where("channel_credentials.id = ?", credentialID))

	var credential models.ChannelCredential
	if err := query.First(&credential).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.Error("Credential not found"))
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to get credential"))
		return
	}

	if err := h.db.WithContext(r.Context()).
		Model(&credential).
		Update("is_active", false).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to deactivate credential"))
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Success: true, Message: "Credential deactivated"})
}
