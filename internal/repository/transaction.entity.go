package repository

import (
	"time"

	"github.com/nimasrn/laser/internal/model"
)

type AccountProviderEntity struct {
	ID   int64  `db:"id"   gorm:"primaryKey;autoIncrement;column:id"`
	Name string `db:"name" gorm:"column:name;not null;uniqueIndex"`
}

func (AccountProviderEntity) TableName() string {
	return "account_provider"
}

type TransactionEntity struct {
	ID          int64     `db:"id"           gorm:"primaryKey;autoIncrement;column:id"`
	ProviderID  int64     `db:"provider_id"  gorm:"column:provider_id;not null;index"`
	FromAccount string    `db:"from_account" gorm:"column:from_account;not null"`
	ToAccount   string    `db:"to_account"   gorm:"column:to_account;not null"`
	Fees        float64   `db:"fees"         gorm:"column:fees;not null;default:0"`
	NetAmount   float64   `db:"net_amount"   gorm:"column:net_amount;not null;default:0"`
	Details     string    `db:"details"      gorm:"column:details"`
	CreatedAt   time.Time `db:"created_at"   gorm:"column:created_at;autoCreateTime"`
}

func (TransactionEntity) TableName() string {
	return "transactions"
}

func toAccountProviderModel(e *AccountProviderEntity) *model.AccountProvider {
	if e == nil {
		return nil
	}
	return &model.AccountProvider{ID: e.ID, Name: e.Name}
}

func toTransactionEntity(m *model.Transaction) *TransactionEntity {
	if m == nil {
		return nil
	}
	return &TransactionEntity{
		ID:          m.ID,
		ProviderID:  m.ProviderID,
		FromAccount: m.FromAccount,
		ToAccount:   m.ToAccount,
		Fees:        m.Fees,
		NetAmount:   m.NetAmount,
		Details:     m.Details,
		CreatedAt:   m.CreatedAt,
	}
}

func toTransactionModel(e *TransactionEntity) *model.Transaction {
	if e == nil {
		return nil
	}
	return &model.Transaction{
		ID:          e.ID,
		ProviderID:  e.ProviderID,
		FromAccount: e.FromAccount,
		ToAccount:   e.ToAccount,
		Fees:        e.Fees,
		NetAmount:   e.NetAmount,
		Details:     e.Details,
		CreatedAt:   e.CreatedAt,
	}
}
