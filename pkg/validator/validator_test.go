package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type repoForm struct {
	URL    string `json:"url" binding:"required,git_url"`
	Branch string `json:"branch" binding:"omitempty,git_branch"`
}

func TestCustomValidator_GitTags(t *testing.T) {
	v := NewCustomValidator()

	cases := []struct {
		form repoForm
		ok   bool
	}{
		{repoForm{URL: "https://github.com/acme/flows.git"}, true},
		{repoForm{URL: "git@github.com:acme/flows.git", Branch: "feature/x"}, true},
		{repoForm{URL: "file:///tmp/flows.git", Branch: "main"}, true},
		{repoForm{URL: "ftp://example.com/flows"}, false},
		{repoForm{URL: "https://example.com/flows.git", Branch: "bad branch"}, false},
		{repoForm{URL: "https://example.com/flows.git", Branch: ".hidden"}, false},
		{repoForm{URL: "https://example.com/flows.git", Branch: "main.lock"}, false},
		{repoForm{URL: "https://example.com/flows.git", Branch: "a..b"}, false},
	}
	for _, c := range cases {
		err := v.ValidateStruct(&c.form)
		assert.Equal(t, c.ok, err == nil, "%+v: %v", c.form, err)
	}

	assert.NoError(t, v.ValidateStruct(nil))
	assert.NoError(t, v.ValidateStruct([]repoForm{{URL: "git://example.com/flows"}}))
}

func TestNewTranslator_CustomMessages(t *testing.T) {
	v := NewCustomValidator()
	validate := v.Engine().(*validator.Validate)
	uni, err := NewTranslator(validate)
	require.NoError(t, err)

	err = v.ValidateStruct(&repoForm{URL: "nope"})
	require.Error(t, err)
	verrs, ok := err.(validator.ValidationErrors)
	require.True(t, ok)

	enTran, _ := uni.GetTranslator("en")
	zhTran, _ := uni.GetTranslator("zh")
	assert.Equal(t, "url must be a valid git repository URL", verrs[0].Translate(enTran))
	assert.Equal(t, "url必须是有效的 Git 仓库地址", verrs[0].Translate(zhTran))
}
