// Package logger 는 주문 서비스 전역에서 쓰는 zap 로거 팩토리를 제공한다.
// 모든 로그 라인에 service 필드가 붙으므로 수집 측에서 서비스 단위로 거를 수 있다.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger 서비스 로거 생성.
// development 모드는 컬러 콘솔 출력, 운영 모드는 JSON 출력을 쓴다.
func NewLogger(serviceName string, development bool) (*zap.Logger, error) {
	var config zap.Config

	if development {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	config.InitialFields = map[string]interface{}{
		"service": serviceName,
	}

	return config.Build()
}

// NewTestLogger 테스트용 로거 생성. 테스트 출력이 시끄러워지지 않도록 버리는 로거를 쓴다.
func NewTestLogger() *zap.Logger {
	return zap.NewNop()
}
