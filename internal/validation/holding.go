package validation

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ndewijer/portfolio-client/internal/apperrors"
	"github.com/ndewijer/portfolio-client/internal/gateway"
	"github.com/ndewijer/portfolio-client/internal/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldMessages maps a failed field to the message shown to the user.
var fieldMessages = map[string]string{
	"ticker":        apperrors.ErrInvalidTicker.Error(),
	"shares":        apperrors.ErrInvalidShares.Error(),
	"purchase_date": apperrors.ErrInvalidDate.Error(),
	"buy_price":     apperrors.ErrNegativeAmount.Error(),
}

// ValidateAddHolding checks a new holding before it is sent to the portfolio service.
// The ticker is normalized in place to its uppercase trimmed form.
//
// Rules:
//   - ticker is required and at most 12 characters
//   - shares must be positive
//   - purchase_date must be YYYY-MM-DD and not after today
//   - buy_price, when given, must not be negative
func ValidateAddHolding(req *gateway.AddHoldingRequest, today time.Time) error {
	req.Ticker = strings.ToUpper(strings.TrimSpace(req.Ticker))
	req.PurchaseDate = strings.TrimSpace(req.PurchaseDate)

	errs := make(map[string]string)

	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			field := fe.Field()
			if _, seen := errs[field]; seen {
				continue
			}
			msg, ok := fieldMessages[field]
			if !ok {
				msg = fe.Error()
			}
			if field == "ticker" && fe.Tag() == "max" {
				msg = "ticker symbol must be 12 characters or less"
			}
			errs[field] = msg
		}
	}

	if _, bad := errs["purchase_date"]; !bad {
		purchased, err := time.Parse(model.DateLayout, req.PurchaseDate)
		if err != nil {
			errs["purchase_date"] = apperrors.ErrInvalidDate.Error()
		} else if purchased.After(dateOnly(today)) {
			errs["purchase_date"] = apperrors.ErrFutureDate.Error()
		}
	}

	if len(errs) > 0 {
		return &Error{Fields: errs}
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
