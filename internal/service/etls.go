// etls.go — каталог ETL.
package service

import (
	"context"

	"github.com/F-Elotlan-M/API-ETL/internal/domain/model"
	"github.com/F-Elotlan-M/API-ETL/internal/repository"
)

// ETLService — чтение каталога ETL.
type ETLService struct {
	etls repository.ETLRepository
}

// NewETLService создаёт ETLService.
func NewETLService(etls repository.ETLRepository) *ETLService {
	return &ETLService{etls: etls}
}

// List возвращает все ETL по возрастанию id.
func (s *ETLService) List(ctx context.Context) ([]*model.ETL, error) {
	etls, err := s.etls.List(ctx)
	if err != nil {
		return nil, internalError("получение каталога ETL", err)
	}
	return etls, nil
}
