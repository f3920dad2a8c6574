package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Log общий логгер сервиса. Инициализирован сразу, чтобы пакеты могли
// логировать и до вызова Init (например в тестах).
var Log = logrus.New()

// Init настраивает уровень и JSON-формат логгера.
func Init(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)
	Log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})
}

// SetTextFormatter переключает логи в текстовый формат (для development).
func SetTextFormatter() {
	Log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}
