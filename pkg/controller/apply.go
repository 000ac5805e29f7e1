package controller

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Router is the registration capability the loader needs from a web
// framework router.
type Router interface {
	Register(method, path string, handlers ...gin.HandlerFunc) error
}

// Parser applies descriptors to a Router.
type Parser struct {
	Logger logrus.FieldLogger
}

var defaultParser = &Parser{Logger: logrus.StandardLogger()}

// Apply registers every valid entry of d with r. Invalid entries are logged
// and skipped. The first registration error stops the loop and is returned.
func (p *Parser) Apply(r Router, d Descriptor) error {
	for _, rt := range d {
		for _, m := range rt.Methods {
			method := strings.ToLower(m.Name)
			switch e := m.Entry.(type) {
			case Valid:
				if err := r.Register(method, rt.Path, e.Handlers...); err != nil {
					return &RegisterError{Method: method, Path: rt.Path, Err: err}
				}
			default:
				p.logger().WithFields(logrus.Fields{
					"method": strings.ToUpper(method),
					"path":   rt.Path,
				}).Warnf("%s %q has no valid callback: %v", strings.ToUpper(method), rt.Path, d)
			}
		}
	}
	return nil
}

// Parse applies each descriptor in order.
func (p *Parser) Parse(r Router, descriptors ...Descriptor) error {
	for _, d := range descriptors {
		if err := p.Apply(r, d); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parser) logger() logrus.FieldLogger {
	if p == nil || p.Logger == nil {
		return logrus.StandardLogger()
	}
	return p.Logger
}

// Apply registers a single descriptor using the standard logger.
func Apply(r Router, d Descriptor) error {
	return defaultParser.Apply(r, d)
}

// Parse registers one or more descriptors using the standard logger.
func Parse(r Router, descriptors ...Descriptor) error {
	return defaultParser.Parse(r, descriptors...)
}
