package customer

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

type MockCustomerRepository struct {
	mock.Mock
}

func (_m *MockCustomerRepository) Save(ctx context.Context, customer *Customer) error {
	ret := _m.Called(ctx, customer)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *Customer) error); ok {
		r0 = rf(ctx, customer)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

func (_m *MockCustomerRepository) FindByID(ctx context.Context, customerID int64) (*Customer, error) {
	ret := _m.Called(ctx, customerID)

	var r0 *Customer
	if rf, ok := ret.Get(0).(func(context.Context, int64) *Customer); ok {
		r0 = rf(ctx, customerID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*Customer)
		}
	}

	return r0, ret.Error(1)
}

func (_m *MockCustomerRepository) FindByCustomerNo(ctx context.Context, customerNo string) (*Customer, error) {
	ret := _m.Called(ctx, customerNo)

	var r0 *Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Customer)
	}

	return r0, ret.Error(1)
}

func (_m *MockCustomerRepository) FindByPhone(ctx context.Context, phone string) (*Customer, error) {
	ret := _m.Called(ctx, phone)

	var r0 *Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Customer)
	}

	return r0, ret.Error(1)
}

func (_m *MockCustomerRepository) FindByPhoneTail(ctx context.Context, tail string, limit int) ([]*Customer, error) {
	ret := _m.Called(ctx, tail, limit)

	var r0 []*Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*Customer)
	}

	return r0, ret.Error(1)
}

func (_m *MockCustomerRepository) FindAll(ctx context.Context, activeOnly bool) ([]*Customer, error) {
	ret := _m.Called(ctx, activeOnly)

	var r0 []*Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*Customer)
	}

	return r0, ret.Error(1)
}

func (_m *MockCustomerRepository) LockForUpdateInTx(ctx context.Context, tx pgx.Tx, customerID int64) (*Customer, error) {
	ret := _m.Called(ctx, tx, customerID)

	var r0 *Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Customer)
	}

	return r0, ret.Error(1)
}

func (_m *MockCustomerRepository) ApplyRepaymentInTx(ctx context.Context, tx pgx.Tx, customerID int64, newLoanBalance, newArrears, amount float64) error {
	ret := _m.Called(ctx, tx, customerID, newLoanBalance, newArrears, amount)
	return ret.Error(0)
}

var _ CustomerRepository = (*MockCustomerRepository)(nil)
