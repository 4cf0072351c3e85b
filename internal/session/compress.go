package session

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// 싱글톤 encoder/decoder - goroutine-safe 재사용
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
	initOnce    sync.Once
	errInit     error
)

// initZstd: zstd encoder/decoder 초기화
func initZstd() error {
	initOnce.Do(func() {
		var err error
		// SpeedDefault: 압축률/속도 균형 (Level 3)
		zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			errInit = fmt.Errorf("create zstd encoder: %w", err)
			return
		}
		zstdDecoder, err = zstd.NewReader(nil)
		if err != nil {
			errInit = fmt.Errorf("create zstd decoder: %w", err)
		}
	})
	return errInit
}

// compressZstd: 데이터를 Zstd로 압축
func compressZstd(src []byte) ([]byte, error) {
	if err := initZstd(); err != nil {
		return nil, err
	}
	// pre-allocate destination buffer (압축 후 크기는 보통 원본보다 작음)
	dst := make([]byte, 0, len(src))
	return zstdEncoder.EncodeAll(src, dst), nil
}

// zstd 프레임 매직 넘버. 압축 여부를 페이로드 자체로 판별한다.
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// maybeCompress: 설정이 켜져 있을 때만 압축한다.
func maybeCompress(src []byte, enabled bool) ([]byte, error) {
	if !enabled {
		return src, nil
	}
	return compressZstd(src)
}

// maybeDecompress: 매직 넘버로 압축본을 식별해 해제한다.
// 평문 JSON 은 그대로 반환하므로 압축 설정 변경에도 기존 데이터를 읽을 수 있다.
func maybeDecompress(src []byte) ([]byte, error) {
	if len(src) >= 4 && bytes.Equal(src[:4], zstdMagic) {
		return decompressZstd(src)
	}
	return src, nil
}

// decompressZstd: Zstd 압축 해제
func decompressZstd(src []byte) ([]byte, error) {
	if err := initZstd(); err != nil {
		return nil, err
	}
	decoded, err := zstdDecoder.DecodeAll(src, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	return decoded, nil
}
