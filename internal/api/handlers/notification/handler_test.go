package notification

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/wb-go/wbf/retry"

	"github.com/igronus/notify/internal/config"
	mocks "github.com/igronus/notify/internal/mocks/api/handlers/notification"
	"github.com/igronus/notify/internal/model"
	notifrepo "github.com/igronus/notify/internal/repository/notification"
)

func setupHandler(t *testing.T) (*Handler, *mocks.MocknotificationService, *config.Config) {
	ctrl := gomock.NewController(t)
	mockService := mocks.NewMocknotificationService(ctrl)
	cfg := &config.Config{Retry: retry.Strategy{}}
	validate := validator.New()
	handler := NewHandler(mockService, validate, cfg)
	return handler, mockService, cfg
}

func TestHandler_Create_Success(t *testing.T) {
	handler, mockService, cfg := setupHandler(t)

	reqBody := CreateRequest{
		RecipientID: "client_1",
		Time:        time.Now().Add(time.Hour).UnixMilli(),
		Text:        "Hello",
	}

	bodyBytes, _ := json.Marshal(reqBody)
	req := httptest.NewRequest(http.MethodPost, "/notifications", bytes.NewReader(bodyBytes))
	w := httptest.NewRecorder()

	c, _ := gin.CreateTestContext(w)
	c.Request = req

	notif := model.Notification{
		RecipientID: reqBody.RecipientID,
		ScheduledAt: reqBody.Time,
		Text:        reqBody.Text,
	}
	created := notif
	created.ID = uuid.New().String()
	created.Status = model.StatusPending

	mockService.EXPECT().
		CreateNotification(gomock.Any(), cfg.Retry, notif).
		Return(created, nil)

	handler.Create(c)

	assert.Equal(t, http.StatusCreated, w.Result().StatusCode)
	assert.Contains(t, w.Body.String(), created.ID)
}

func TestHandler_Create_MissingFields(t *testing.T) {
	handler, _, _ := setupHandler(t)

	bodyBytes, _ := json.Marshal(map[string]any{"text": "no recipient or time"})
	req := httptest.NewRequest(http.MethodPost, "/notifications", bytes.NewReader(bodyBytes))
	w := httptest.NewRecorder()

	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestHandler_Create_NonFutureTime(t *testing.T) {
	handler, _, _ := setupHandler(t)

	reqBody := CreateRequest{
		RecipientID: "client_1",
		Time:        time.Now().Add(-time.Minute).UnixMilli(),
		Text:        "too late",
	}

	bodyBytes, _ := json.Marshal(reqBody)
	req := httptest.NewRequest(http.MethodPost, "/notifications", bytes.NewReader(bodyBytes))
	w := httptest.NewRecorder()

	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
	assert.Contains(t, w.Body.String(), "future")
}

func TestHandler_Create_InvalidBody(t *testing.T) {
	handler, _, _ := setupHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/notifications", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()

	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestHandler_GetByID_Success(t *testing.T) {
	handler, mockService, _ := setupHandler(t)

	id := uuid.New().String()
	notif := model.Notification{
		ID:          id,
		RecipientID: "client_1",
		ScheduledAt: time.Now().Add(time.Hour).UnixMilli(),
		Status:      model.StatusPending,
		Text:        "Hello",
	}

	req := httptest.NewRequest(http.MethodGet, "/notifications/"+id, nil)
	w := httptest.NewRecorder()

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: id}}

	mockService.EXPECT().
		GetNotificationByID(gomock.Any(), id).
		Return(notif, nil)

	handler.GetByID(c)

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
	assert.Contains(t, w.Body.String(), id)
}

func TestHandler_GetByID_NotFound(t *testing.T) {
	handler, mockService, _ := setupHandler(t)

	id := uuid.New().String()
	req := httptest.NewRequest(http.MethodGet, "/notifications/"+id, nil)
	w := httptest.NewRecorder()

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: id}}

	mockService.EXPECT().
		GetNotificationByID(gomock.Any(), id).
		Return(model.Notification{}, notifrepo.ErrNotificationNotFound)

	handler.GetByID(c)

	assert.Equal(t, http.StatusNotFound, w.Result().StatusCode)
}

func TestHandler_GetStatus_Success(t *testing.T) {
	handler, mockService, cfg := setupHandler(t)

	id := uuid.New().String()
	req := httptest.NewRequest(http.MethodGet, "/notifications/"+id+"/status", nil)
	w := httptest.NewRecorder()

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: id}}

	mockService.EXPECT().
		GetNotificationStatusByID(gomock.Any(), cfg.Retry, id).
		Return(model.StatusSent, nil)

	handler.GetStatus(c)

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
	assert.Contains(t, w.Body.String(), "SENT")
}

func TestHandler_TopRecipients(t *testing.T) {
	handler, mockService, _ := setupHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/notifications/stats/recipients", nil)
	w := httptest.NewRecorder()

	c, _ := gin.CreateTestContext(w)
	c.Request = req

	mockService.EXPECT().
		TopRecipients(gomock.Any(), int64(topRecipientsLimit)).
		Return([]notifrepo.RecipientStats{{RecipientID: "client_1", Total: 3, Sent: 3}}, nil)

	handler.TopRecipients(c)

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
	assert.Contains(t, w.Body.String(), "client_1")
}

func TestHandler_Health(t *testing.T) {
	handler, _, _ := setupHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Health(c)

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
	assert.Contains(t, w.Body.String(), "healthy")
}
