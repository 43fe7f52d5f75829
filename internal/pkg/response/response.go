// Package response wraps proxyutil's JSON envelope with the service's
// numeric error codes.
package response

import (
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/webapi/proxyutil"
)

type codeErr struct {
	code uint32
	msg  string
}

func (e codeErr) Error() string {
	return e.msg
}

func (e codeErr) Code() uint32 {
	return e.code
}

func AsCodeErr(code uint32, msg string) error {
	return codeErr{code: code, msg: msg}
}

func Success(c *gin.Context, data interface{}) {
	proxyutil.SuccessJson(c, data)
}

// Error responds with the envelope's fail shape. The HTTP status stays
// 200; clients read the embedded code.
func Error(c *gin.Context, code int, message string) {
	if message == "" {
		message = "request failed"
	}
	proxyutil.FailJson(c, 200, AsCodeErr(uint32(code), message))
}
