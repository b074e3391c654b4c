package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"invoicing/internal/dto"
	"invoicing/internal/model"
	"invoicing/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClientService defines business operations for clients.
type ClientService interface {
	Create(ctx context.Context, req dto.CreateClientRequest) (*dto.ClientResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.ClientResponse, error)
	List(ctx context.Context, filter dto.ClientFilter) ([]dto.ClientResponse, error)
	Update(ctx context.Context, id uuid.UUID, req dto.UpdateClientRequest) (*dto.ClientResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type clientService struct {
	repo  repository.ClientRepository
	cache SummaryCache
}

// NewClientService takes the report cache because deleting a client
// rewrites the client_id of its invoices.
func NewClientService(repo repository.ClientRepository, cache SummaryCache) ClientService {
	return &clientService{repo: repo, cache: orNoop(cache)}
}

func (s *clientService) Create(ctx context.Context, req dto.CreateClientRequest) (*dto.ClientResponse, error) {
	c := &model.Client{
		Name:    strings.TrimSpace(req.Name),
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	resp := clientToResponse(c)
	return &resp, nil
}

func (s *clientService) Get(ctx context.Context, id uuid.UUID) (*dto.ClientResponse, error) {
	c, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := clientToResponse(c)
	return &resp, nil
}

func (s *clientService) List(ctx context.Context, filter dto.ClientFilter) ([]dto.ClientResponse, error) {
	list, err := s.repo.List(ctx, filter.Search)
	if err != nil {
		return nil, err
	}
	result := make([]dto.ClientResponse, 0, len(list))
	for i := range list {
		result = append(result, clientToResponse(&list[i]))
	}
	return result, nil
}

func (s *clientService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateClientRequest) (*dto.ClientResponse, error) {
	c, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		c.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		c.Email = req.Email
	}
	if req.Phone != nil {
		c.Phone = req.Phone
	}
	if req.Address != nil {
		c.Address = req.Address
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("update client: %w", err)
	}
	resp := clientToResponse(c)
	return &resp, nil
}

func (s *clientService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrClientNotFound
		}
		return fmt.Errorf("delete client: %w", err)
	}
	s.cache.Invalidate(ctx)
	return nil
}

func (s *clientService) find(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	return c, nil
}

func clientToResponse(c *model.Client) dto.ClientResponse {
	return dto.ClientResponse{
		ID:        c.ID.String(),
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
		UpdatedAt: c.UpdatedAt.Format(time.RFC3339),
	}
}
