package logger

import "go.uber.org/zap"

var Log *zap.Logger = zap.NewNop()

func Init(debug bool) {
	if debug {
		Log = zap.Must(zap.NewDevelopment())
		return
	}
	Log = zap.Must(zap.NewProduction())
}

func Sugar() *zap.SugaredLogger {
	return Log.Sugar()
}
