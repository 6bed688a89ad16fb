// Package validator 为 gin 绑定提供 validator/v10 引擎，并注册 Git 相关的自定义校验
package validator

import (
	"reflect"
	"strings"
	"sync"

	"github.com/haierkeys/artifact-git-sync/pkg/util"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
)

// CustomValidator 实现 binding.StructValidator
type CustomValidator struct {
	once     sync.Once
	validate *validator.Validate
}

var _ binding.StructValidator = (*CustomValidator)(nil)

// NewCustomValidator 创建验证器
func NewCustomValidator() *CustomValidator {
	return &CustomValidator{}
}

// ValidateStruct 校验结构体，指针与切片按元素校验
func (v *CustomValidator) ValidateStruct(obj any) error {
	if obj == nil {
		return nil
	}
	value := reflect.ValueOf(obj)
	switch value.Kind() {
	case reflect.Ptr:
		if value.IsNil() {
			return nil
		}
		return v.ValidateStruct(value.Elem().Interface())
	case reflect.Struct:
		v.lazyinit()
		return v.validate.Struct(obj)
	case reflect.Slice, reflect.Array:
		for i := 0; i < value.Len(); i++ {
			if err := v.ValidateStruct(value.Index(i).Interface()); err != nil {
				return err
			}
		}
	}
	return nil
}

// Engine 返回底层 *validator.Validate
func (v *CustomValidator) Engine() any {
	v.lazyinit()
	return v.validate
}

func (v *CustomValidator) lazyinit() {
	v.once.Do(func() {
		v.validate = validator.New()
		v.validate.SetTagName("binding")
		v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = RegisterCustom(v.validate)
	})
}

// RegisterCustom 注册自定义校验标签 git_url 与 git_branch
func RegisterCustom(validate *validator.Validate) error {
	if err := validate.RegisterValidation("git_url", func(fl validator.FieldLevel) bool {
		return util.IsValidRepositoryURL(fl.Field().String())
	}); err != nil {
		return err
	}
	return validate.RegisterValidation("git_branch", func(fl validator.FieldLevel) bool {
		return util.IsValidBranchName(fl.Field().String())
	})
}

type customMessage struct {
	tag string
	en  string
	zh  string
}

var customMessages = []customMessage{
	{tag: "git_url", en: "{0} must be a valid git repository URL", zh: "{0}必须是有效的 Git 仓库地址"},
	{tag: "git_branch", en: "{0} must be a valid git branch name", zh: "{0}必须是有效的 Git 分支名称"},
}

// NewTranslator 创建 en/zh 翻译器并注册默认与自定义翻译
func NewTranslator(validate *validator.Validate) (*ut.UniversalTranslator, error) {
	uni := ut.New(en.New(), en.New(), zh.New())

	zhTran, _ := uni.GetTranslator("zh")
	enTran, _ := uni.GetTranslator("en")

	if err := zh_translations.RegisterDefaultTranslations(validate, zhTran); err != nil {
		return nil, err
	}
	if err := en_translations.RegisterDefaultTranslations(validate, enTran); err != nil {
		return nil, err
	}

	for _, m := range customMessages {
		if err := registerTranslation(validate, enTran, m.tag, m.en); err != nil {
			return nil, err
		}
		if err := registerTranslation(validate, zhTran, m.tag, m.zh); err != nil {
			return nil, err
		}
	}
	return uni, nil
}

func registerTranslation(validate *validator.Validate, trans ut.Translator, tag, text string) error {
	return validate.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error {
			return ut.Add(tag, text, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, err := ut.T(fe.Tag(), fe.Field())
			if err != nil {
				return fe.Error()
			}
			return t
		},
	)
}

// Setup 安装为 gin 的默认验证器并返回翻译器
func Setup() (*ut.UniversalTranslator, error) {
	v := NewCustomValidator()
	binding.Validator = v
	return NewTranslator(v.Engine().(*validator.Validate))
}
