package grpcapi

import (
	"math"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const timeLayout = time.RFC3339

func str(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

// integer читает целое число; Struct хранит все числа как double.
// Отсутствующее поле даёт 0, дробное или слишком большое значение отклоняется.
func integer(s *structpb.Struct, key string) (int, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return 0, nil
	}
	if _, isNumber := v.GetKind().(*structpb.Value_NumberValue); !isNumber {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a number", key)
	}
	n := v.GetNumberValue()
	if n != math.Trunc(n) || n > math.MaxInt32 || n < math.MinInt32 {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a 32-bit integer", key)
	}
	return int(n), nil
}

func list(items []string) []any {
	out := make([]any, 0, len(items))
	for _, it := range items {
		out = append(out, it)
	}
	return out
}

func stringList(v *structpb.Value) []string {
	values := v.GetListValue().GetValues()
	out := make([]string, 0, len(values))
	for _, it := range values {
		out = append(out, it.GetStringValue())
	}
	return out
}
