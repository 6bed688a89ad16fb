package code

import (
	"errors"
	"fmt"
	"reflect"
	"sync/atomic"
)

// lang type, used to store English and Chinese text
// lang 类型，用来存储英文和中文文本
type lang struct {
	en    string // English // 英文
	zh_cn string // Chinese // 中文
}

const FALLBACK_LNG = "en"

// Default language is English // 默认语言为英文
var lng atomic.Value

func init() {
	lng.Store(FALLBACK_LNG)
}

// GetMessage returns the message of the current language, falling back to English
// GetMessage 根据当前语言返回消息，没有时回退到英文
func (l lang) GetMessage() string {
	current, _ := lng.Load().(string)
	if current == "" {
		current = FALLBACK_LNG
	}
	val := reflect.ValueOf(l)
	if field := val.FieldByName(current); field.IsValid() && field.String() != "" {
		return field.String()
	}
	if field := val.FieldByName(FALLBACK_LNG); field.IsValid() && field.String() != "" {
		return field.String()
	}
	return fmt.Sprintf("No message available for language: %s", current)
}

// GetSupportedLanguages returns all languages supported by the lang type
// GetSupportedLanguages 返回 lang 类型支持的所有语言
func GetSupportedLanguages() []string {
	var languages []string
	typ := reflect.TypeOf(lang{})
	for i := 0; i < typ.NumField(); i++ {
		languages = append(languages, typ.Field(i).Name)
	}
	return languages
}

// SetGlobalDefaultLang sets the global default language
// SetGlobalDefaultLang 设置全局默认语言
func SetGlobalDefaultLang(language string) error {
	for _, l := range GetSupportedLanguages() {
		if language == l {
			lng.Store(language)
			return nil
		}
	}
	lng.Store(FALLBACK_LNG)
	return errors.New("unsupported language type, set defaulting to " + FALLBACK_LNG)
}

// GetGlobalDefaultLang gets the global default language
// GetGlobalDefaultLang 获取全局默认语言
func GetGlobalDefaultLang() string {
	current, _ := lng.Load().(string)
	return current
}
