package model

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	if err := validate.RegisterValidation("clock", validateClock); err != nil {
		panic(err)
	}
}

// ValidateStruct 按 validate 标签校验
func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// ValidateCourse 字段校验 + 结束时间晚于开始时间
func ValidateCourse(c Course) error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.EndMinutes() <= c.StartMinutes() {
		return fmt.Errorf("结束时间 %s 必须晚于开始时间 %s", c.EndTime, c.StartTime)
	}
	return nil
}

func validateClock(fl validator.FieldLevel) bool {
	_, err := ParseClock(fl.Field().String())
	return err == nil
}
