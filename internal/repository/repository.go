// Package repository 는 주문 애그리거트의 영속성 포트를 제공한다.
// 쓰기 메소드는 호출자가 연 트랜잭션(*sql.Tx)을 받아 하나의 작업 단위로 묶이고,
// 읽기 메소드는 커넥션 풀에서 직접 조회한다.
package repository

import "time"

// 시간 컬럼은 epoch millis 로 저장한다. (드라이버 간 TIMESTAMP 표현 차이 회피)
func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
