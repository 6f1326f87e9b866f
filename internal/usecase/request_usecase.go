package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"agriconnect/internal/domain/entity"
	"agriconnect/internal/domain/repository"
	"agriconnect/internal/domain/service"
	"agriconnect/internal/infrastructure/ratelimit"
	"agriconnect/pkg/errors"
	"agriconnect/pkg/logger"
)

type RequestOptions struct {
	RejectDuplicatePending bool
	CascadeDeleteMessages  bool
}

type RequestUseCase struct {
	requestRepo     repository.RequestRepository
	messageRepo     repository.MessageRepository
	participantRepo repository.ParticipantRepository
	collab          Collaborators
	opts            RequestOptions
}

func NewRequestUseCase(
	requestRepo repository.RequestRepository,
	messageRepo repository.MessageRepository,
	participantRepo repository.ParticipantRepository,
	collab Collaborators,
	opts RequestOptions,
) *RequestUseCase {
	return &RequestUseCase{
		requestRepo:     requestRepo,
		messageRepo:     messageRepo,
		participantRepo: participantRepo,
		collab:          collab.withDefaults(),
		opts:            opts,
	}
}

// Price holds a request price as sent by the client: a JSON number or a numeric string.
type Price string

func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Price(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("price must be a number or numeric string")
	}
	*p = Price(n.String())
	return nil
}

// Value parses the price. It must be a finite number greater than zero.
func (p Price) Value() (float64, error) {
	raw := strings.TrimSpace(string(p))
	if raw == "" {
		return 0, errors.Validation("price is required", nil)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, errors.Validation(fmt.Sprintf("price %q is not a number", raw), err)
	}
	if v <= 0 {
		return 0, errors.Validation("price must be greater than zero", nil)
	}
	return v, nil
}

type CreateRequestInput struct {
	FarmerID   string `json:"farmer_id" validate:"required"`
	FarmerName string `json:"farmer_name"`
	SellerID   string `json:"seller_id" validate:"required"`
	SellerName string `json:"seller_name"`
	Crop       string `json:"crop" validate:"required"`
	Region     string `json:"region" validate:"required"`
	Price      Price  `json:"price"`
}

type ListRequestsInput struct {
	Role   string
	Status string
}

func (uc *RequestUseCase) CreateRequest(ctx context.Context, actorID string, input CreateRequestInput) (*entity.MatchRequest, error) {
	farmerID := entity.NormalizeParticipantID(input.FarmerID)
	sellerID := entity.NormalizeParticipantID(input.SellerID)
	if farmerID == "" || sellerID == "" {
		return nil, errors.Validation("farmer_id and seller_id are required", nil)
	}
	if farmerID == sellerID {
		return nil, errors.Validation("a request needs two distinct participants", nil)
	}

	crop := strings.TrimSpace(input.Crop)
	region := strings.TrimSpace(input.Region)
	if crop == "" || region == "" {
		return nil, errors.Validation("crop and region are required", nil)
	}
	price, err := input.Price.Value()
	if err != nil {
		return nil, err
	}

	request := &entity.MatchRequest{
		FarmerID:   farmerID,
		FarmerName: strings.TrimSpace(input.FarmerName),
		SellerID:   sellerID,
		SellerName: strings.TrimSpace(input.SellerName),
		Crop:       crop,
		Region:     region,
		Price:      price,
		Status:     entity.StatusPending,
	}
	if !request.InvolvesParticipant(entity.NormalizeParticipantID(actorID)) {
		return nil, errors.Forbidden("you can only create requests you are a party to", nil)
	}

	if allowed, wait := uc.collab.Limiter.Allow(actorID, ratelimit.ActionCreateRequest); !allowed {
		return nil, errors.TooManyRequests(fmt.Sprintf("too many requests, retry in %s", wait.Round(time.Second)))
	}

	if request.FarmerName == "" {
		request.FarmerName = uc.lookupName(ctx, farmerID)
	}
	if request.SellerName == "" {
		request.SellerName = uc.lookupName(ctx, sellerID)
	}
	if request.FarmerName == "" || request.SellerName == "" {
		return nil, errors.Validation("farmer_name and seller_name are required", nil)
	}

	if uc.opts.RejectDuplicatePending {
		exists, err := uc.requestRepo.ExistsPending(ctx, farmerID, sellerID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, errors.Conflict("a pending request already links these participants")
		}
	}

	if err := uc.requestRepo.Create(ctx, request); err != nil {
		return nil, err
	}

	logger.Info("request %d created: %s -> %s (%s, %s)", request.ID, farmerID, sellerID, crop, region)
	uc.collab.Recorder.RequestTransitioned(string(entity.StatusPending))
	uc.collab.Notifier.RequestChanged(ctx, request)
	return request, nil
}

func (uc *RequestUseCase) lookupName(ctx context.Context, participantID string) string {
	p, err := uc.participantRepo.GetByID(ctx, participantID)
	if err != nil {
		if !errors.Is(err, errors.CodeNotFound) {
			logger.Warn("participant lookup for %s failed: %v", participantID, err)
		}
		return ""
	}
	return p.DisplayName
}

func (uc *RequestUseCase) Accept(ctx context.Context, id int64, actorID string) (*entity.MatchRequest, error) {
	return uc.transition(ctx, id, actorID, entity.StatusAccepted)
}

func (uc *RequestUseCase) Reject(ctx context.Context, id int64, actorID string) (*entity.MatchRequest, error) {
	return uc.transition(ctx, id, actorID, entity.StatusRejected)
}

func (uc *RequestUseCase) transition(ctx context.Context, id int64, actorID string, target entity.RequestStatus) (*entity.MatchRequest, error) {
	if id <= 0 {
		return nil, errors.Validation("invalid request id", nil)
	}

	updated, err := uc.requestRepo.Update(ctx, id, func(r *entity.MatchRequest) error {
		if !r.IsSeller(actorID) {
			return errors.Forbidden("only the seller on the request can accept or reject it", nil)
		}
		return r.TransitionTo(target)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("request %d %s by %s", id, target, actorID)
	uc.collab.Recorder.RequestTransitioned(string(target))
	uc.collab.Notifier.RequestChanged(ctx, updated)
	return updated, nil
}

// Delete hard-deletes a request in any status. Participants not on the request see NotFound.
func (uc *RequestUseCase) Delete(ctx context.Context, id int64, actorID string) error {
	if id <= 0 {
		return errors.Validation("invalid request id", nil)
	}

	request, err := uc.requestRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !request.InvolvesParticipant(actorID) {
		return errors.NotFound("Request", nil)
	}

	if err := uc.requestRepo.Delete(ctx, id); err != nil {
		return err
	}
	logger.Info("request %d deleted by %s", id, actorID)

	if uc.opts.CascadeDeleteMessages && request.Status == entity.StatusAccepted {
		uc.cascadeMessages(ctx, request)
	}

	uc.collab.Notifier.RequestChanged(ctx, request)
	return nil
}

// cascadeMessages removes the room only when no other accepted request still links the pair.
func (uc *RequestUseCase) cascadeMessages(ctx context.Context, deleted *entity.MatchRequest) {
	linked, err := uc.linked(ctx, deleted.FarmerID, deleted.SellerID)
	if err != nil {
		logger.Warn("cascade check for request %d failed: %v", deleted.ID, err)
		return
	}
	if linked {
		return
	}

	room, err := service.DeriveChannelID(deleted.FarmerID, deleted.SellerID)
	if err != nil {
		logger.Warn("cascade for request %d: %v", deleted.ID, err)
		return
	}
	n, err := uc.messageRepo.DeleteRoom(ctx, room)
	if err != nil {
		logger.Warn("cascade delete of room %s failed: %v", room, err)
		return
	}
	logger.Info("removed %d messages from room %s", n, room)
}

// linked reports whether an accepted request exists between a and b, in either direction.
func (uc *RequestUseCase) linked(ctx context.Context, a, b string) (bool, error) {
	accepted, err := uc.requestRepo.List(ctx, entity.RequestFilter{ParticipantID: a, Status: entity.StatusAccepted})
	if err != nil {
		return false, err
	}
	for _, r := range accepted {
		if strings.EqualFold(r.Counterpart(a), b) {
			return true, nil
		}
	}
	return false, nil
}

func (uc *RequestUseCase) ListForParticipant(ctx context.Context, participantID string, input ListRequestsInput) ([]*entity.MatchRequest, error) {
	if participantID == "" {
		return nil, errors.Validation("participant id is required", nil)
	}

	filter := entity.RequestFilter{ParticipantID: participantID}
	if input.Role != "" {
		role, ok := entity.ParseRole(input.Role)
		if !ok {
			return nil, errors.Validation(fmt.Sprintf("unknown role %q", input.Role), nil)
		}
		filter.Role = role
	}
	if input.Status != "" {
		status := entity.RequestStatus(strings.ToLower(input.Status))
		if !status.Valid() {
			return nil, errors.Validation(fmt.Sprintf("unknown status %q", input.Status), nil)
		}
		filter.Status = status
	}

	requests, err := uc.requestRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if requests == nil {
		requests = []*entity.MatchRequest{}
	}
	return requests, nil
}

// ActiveChats lists the participant's accepted requests, newest first, with the room each one opens.
func (uc *RequestUseCase) ActiveChats(ctx context.Context, participantID string) ([]entity.ActiveChat, error) {
	accepted, err := uc.ListForParticipant(ctx, participantID, ListRequestsInput{Status: string(entity.StatusAccepted)})
	if err != nil {
		return nil, err
	}

	chats := make([]entity.ActiveChat, 0, len(accepted))
	for _, r := range accepted {
		room, err := service.DeriveChannelID(r.FarmerID, r.SellerID)
		if err != nil {
			logger.Warn("request %d has no valid channel: %v", r.ID, err)
			continue
		}
		peerName := r.SellerName
		if r.IsSeller(participantID) {
			peerName = r.FarmerName
		}
		chats = append(chats, entity.ActiveChat{
			Request:   r,
			ChannelID: room,
			PeerID:    r.Counterpart(participantID),
			PeerName:  peerName,
		})
	}
	return chats, nil
}

// ChannelFor derives the room between the participant and a peer.
func (uc *RequestUseCase) ChannelFor(participantID, peerID string) (string, error) {
	return service.DeriveChannelID(participantID, peerID)
}
