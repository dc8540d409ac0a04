package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/go-chi/chi/v5"

	sqsQueue "aws-sqs-http-gateway/internal/pkg/queue/sqs"
)

type createQueueRequest struct {
	Name                   string `json:"name" validate:"required,max=80"`
	VisibilityTimeout      int32  `json:"visibility_timeout" validate:"gte=0,lte=43200"`
	MessageRetentionPeriod int32  `json:"message_retention_period" validate:"omitempty,gte=60,lte=1209600"`
	DeadLetterTargetArn    string `json:"dead_letter_target_arn"`
	MaxReceiveCount        int    `json:"max_receive_count" validate:"required_with=DeadLetterTargetArn"`
}

type queueURLResponse struct {
	QueueURL string `json:"queue_url"`
}

type messagesResponse struct {
	Messages []types.Message `json:"messages"`
}

func (a *API) createQueue(w http.ResponseWriter, r *http.Request) {
	var req createQueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}
	if err := a.Validator.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	url, err := a.Admin.CreateQueue(r.Context(), req.Name, sqsQueue.CreateQueueOptions{
		VisibilityTimeout:      req.VisibilityTimeout,
		MessageRetentionPeriod: req.MessageRetentionPeriod,
		DeadLetterTargetArn:    req.DeadLetterTargetArn,
		MaxReceiveCount:        req.MaxReceiveCount,
	})
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, queueURLResponse{QueueURL: url})
}

func (a *API) queueURL(w http.ResponseWriter, r *http.Request) {
	url, err := a.Admin.GetQueueURL(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, queueURLResponse{QueueURL: url})
}

func (a *API) receiveMessages(w http.ResponseWriter, r *http.Request) {
	url, ok := queueURLParam(w, r)
	if !ok {
		return
	}
	limit := int32(sqsQueue.MaxReceiveBatch)
	if v := r.URL.Query().Get("max_number_of_messages"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			writeError(w, http.StatusBadRequest, "max_number_of_messages must be a number")
			return
		}
		limit = int32(n)
	}

	messages, err := a.Admin.ReceiveMessages(r.Context(), url, sqsQueue.ReceiveOptions{
		MaxNumberOfMessages:   limit,
		MessageAttributeNames: []string{sqsQueue.AllAttributes},
		AttributeNames:        []string{sqsQueue.AllAttributes},
	})
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, sqsQueue.ErrInvalidMaxMessages) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	if messages == nil {
		messages = []types.Message{}
	}
	writeJSON(w, http.StatusOK, messagesResponse{Messages: messages})
}

func (a *API) purgeQueue(w http.ResponseWriter, r *http.Request) {
	url, ok := queueURLParam(w, r)
	if !ok {
		return
	}
	if err := a.Admin.PurgeQueue(r.Context(), url); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) queueStats(w http.ResponseWriter, r *http.Request) {
	url, ok := queueURLParam(w, r)
	if !ok {
		return
	}
	stats, err := a.Admin.QueueStats(r.Context(), url)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func queueURLParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	url := r.URL.Query().Get("queue_url")
	if url == "" {
		writeError(w, http.StatusBadRequest, "queue_url is required")
		return "", false
	}
	return url, true
}
