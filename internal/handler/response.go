package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/park285/showme-server-go/internal/handler/shared"
)

// shared 패키지 도우미에 대한 패키지 내부 단축 별칭.

func writeError(c *gin.Context, err error) {
	shared.WriteError(c, err)
}

func bindJSON(c *gin.Context, out any) bool {
	return shared.BindJSON(c, out)
}

// bindJSONAllowEmpty 는 빈 본문도 허용한다. 세션 생성처럼 본문이 선택인 엔드포인트용이다.
func bindJSONAllowEmpty(c *gin.Context, out any) bool {
	return shared.BindJSONAllowEmpty(c, out)
}
