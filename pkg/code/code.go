package code

import (
	"fmt"
	"net/http"
)

type Code struct {
	// 状态码
	code int
	// 状态
	status bool
	// 错误消息
	Lang lang
	// 数据
	data interface{}
	// 是否含有Data
	haveData bool
	// 错误详细信息
	details []string
	// 是否含有详情
	haveDetails bool
	// 关联的仓库 ID
	repository     string
	haveRepository bool
}

var codes = map[int]string{}
var sussCodes = map[int]string{}

func NewError(code int, l lang) *Code {
	if _, ok := codes[code]; ok {
		panic(fmt.Sprintf("错误码 %d 已经存在，请更换一个", code))
	}
	codes[code] = l.GetMessage()
	return &Code{code: code, status: false, Lang: l}
}

func NewSuss(code int, l lang) *Code {
	if _, ok := sussCodes[code]; ok {
		panic(fmt.Sprintf("成功码 %d 已经存在，请更换一个", code))
	}
	sussCodes[code] = l.GetMessage()
	return &Code{code: code, status: true, Lang: l}
}

// clone 返回一个不带附加信息的副本
// 全局错误码是共享的，With* 方法总是在副本上修改，避免并发请求互相覆盖
func (e *Code) clone() *Code {
	c := &Code{
		code:           e.code,
		status:         e.status,
		Lang:           e.Lang,
		data:           e.data,
		haveData:       e.haveData,
		haveDetails:    e.haveDetails,
		repository:     e.repository,
		haveRepository: e.haveRepository,
	}
	c.details = append([]string(nil), e.details...)
	return c
}

func (e *Code) Error() string {
	if e.haveDetails && len(e.details) > 0 {
		return fmt.Sprintf("%s: %v", e.Msg(), e.details)
	}
	return e.Msg()
}

func (e *Code) Code() int {
	return e.code
}

func (e *Code) Status() bool {
	return e.status
}

func (e *Code) Msg() string {
	return e.Lang.GetMessage()
}

func (e *Code) Details() []string {
	return e.details
}

func (e *Code) Data() interface{} {
	return e.data
}

func (e *Code) Repository() string {
	return e.repository
}

func (e *Code) HaveDetails() bool {
	return e.haveDetails
}

func (e *Code) HaveData() bool {
	return e.haveData
}

func (e *Code) HaveRepository() bool {
	return e.haveRepository
}

func (e *Code) WithData(data interface{}) *Code {
	c := e.clone()
	c.haveData = true
	c.data = data
	return c
}

func (e *Code) WithRepository(id string) *Code {
	c := e.clone()
	c.haveRepository = true
	c.repository = id
	return c
}

func (e *Code) WithDetails(details ...string) *Code {
	c := e.clone()
	c.haveDetails = true
	c.details = append([]string{}, details...)
	return c
}

// Is 按错误码比较，使 errors.Is(err, code.ErrorX) 对 WithDetails 产生的副本同样成立
func (e *Code) Is(target error) bool {
	t, ok := target.(*Code)
	if !ok {
		return false
	}
	return t.code == e.code && t.status == e.status
}

func (e *Code) StatusCode() int {
	return http.StatusOK
}
