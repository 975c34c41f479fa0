package logger

import "go.uber.org/zap"

// Printf adapts zap to the printf-style logger interfaces expected by
// badger (Errorf/Warningf/Infof/Debugf) and ants (Printf).
type Printf struct {
	s *zap.SugaredLogger
}

// NewPrintf wraps a zap logger. A nil logger discards output.
func NewPrintf(l *zap.Logger) *Printf {
	if l == nil {
		l = zap.NewNop()
	}
	return &Printf{s: l.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

// Errorf logs at error level.
func (p *Printf) Errorf(format string, args ...any) { p.s.Errorf(format, args...) }

// Warningf logs at warn level.
func (p *Printf) Warningf(format string, args ...any) { p.s.Warnf(format, args...) }

// Infof logs at info level.
func (p *Printf) Infof(format string, args ...any) { p.s.Infof(format, args...) }

// Debugf logs at debug level.
func (p *Printf) Debugf(format string, args ...any) { p.s.Debugf(format, args...) }

// Printf logs at info level.
func (p *Printf) Printf(format string, args ...any) { p.s.Infof(format, args...) }
