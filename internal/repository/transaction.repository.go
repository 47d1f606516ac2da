package repository

import (
	"context"

	"github.com/nimasrn/laser/internal/model"
	"github.com/nimasrn/laser/pkg/pg"
)

type TransactionRepository struct {
	*pg.DB
}

func NewTransactionRepository(db *pg.DB) *TransactionRepository {
	return &TransactionRepository{
		db,
	}
}

func (r *TransactionRepository) Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	entity := toTransactionEntity(txn)

	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, translate(err, "transaction", txn.FromAccount)
	}

	return toTransactionModel(entity), nil
}

func (r *TransactionRepository) Get(ctx context.Context, id int64) (*model.Transaction, error) {
	var entity TransactionEntity
	if err := r.Read(ctx).First(&entity, id).Error; err != nil {
		return nil, translate(err, "transaction", id)
	}
	return toTransactionModel(&entity), nil
}

type AccountProviderRepository struct {
	*pg.DB
}

func NewAccountProviderRepository(db *pg.DB) *AccountProviderRepository {
	return &AccountProviderRepository{
		db,
	}
}

func (r *AccountProviderRepository) Create(ctx context.Context, name string) (*model.AccountProvider, error) {
	entity := &AccountProviderEntity{Name: name}
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, translate(err, "account provider", name)
	}
	return toAccountProviderModel(entity), nil
}

func (r *AccountProviderRepository) Get(ctx context.Context, id int64) (*model.AccountProvider, error) {
	var entity AccountProviderEntity
	if err := r.Read(ctx).First(&entity, id).Error; err != nil {
		return nil, translate(err, "account provider", id)
	}
	return toAccountProviderModel(&entity), nil
}

func (r *AccountProviderRepository) List(ctx context.Context) ([]*model.AccountProvider, error) {
	var entities []*AccountProviderEntity
	if err := r.Read(ctx).Order("name ASC").Find(&entities).Error; err != nil {
		return nil, err
	}
	providers := make([]*model.AccountProvider, len(entities))
	for i, e := range entities {
		providers[i] = toAccountProviderModel(e)
	}
	return providers, nil
}
