package warehouses

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound   = errors.New("warehouse not found")
	ErrDuplicate  = errors.New("warehouse code already in use")
	ErrInUse      = errors.New("warehouse is referenced by other records")
	ErrInvalidID  = errors.New("invalid warehouse ID")
	ErrValidation = errors.New("invalid warehouse")
)

func (s *Service) validate(w *Warehouse) error {
	w.Code = strings.ToUpper(strings.TrimSpace(w.Code))
	w.Name = strings.TrimSpace(w.Name)
	w.Address = strings.TrimSpace(w.Address)
	if err := s.validator.Struct(w); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
