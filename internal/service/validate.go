package service

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"gitlab.ozon.dev/qwestard/umishka/internal/models"
	"gitlab.ozon.dev/qwestard/umishka/internal/numbering"
)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("ordernum", func(fl validator.FieldLevel) bool {
		return numbering.Valid(fl.Field().String())
	})
	return v
}

// validateForm проверяет форму до любой записи. Товары проверяются первыми,
// как и в форме: пустой заказ важнее кривого номера.
func (s *OrderService) validateForm(form models.OrderForm) error {
	if len(form.Items) == 0 {
		return &models.ValidationError{Field: "items", Message: "Добавьте товар"}
	}
	err := s.validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	fe := verrs[0]
	switch fe.StructField() {
	case "Number":
		return &models.ValidationError{Field: "number", Message: "Номер: №0001"}
	case "CreatedAt":
		return &models.ValidationError{Field: "createdAt", Message: "Дата: ГГГГ-ММ-ДД"}
	case "Clients":
		return &models.ValidationError{Field: "clients", Message: "Не больше двух клиентов"}
	case "Name":
		return &models.ValidationError{Field: "items", Message: "Укажите название товара"}
	case "Price":
		return &models.ValidationError{Field: "price", Message: "Цена не может быть отрицательной"}
	}
	return &models.ValidationError{Field: "items", Message: "Добавьте товар"}
}
