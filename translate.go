// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package lambdawrap

import (
	"net/url"
	"strings"

	"github.com/z5labs/lambdawrap/inject"

	"github.com/aws/aws-lambda-go/events"
)

// EventToOptions translates an API Gateway proxy event into the options
// of an in-process injection. basePath is stripped from the event path when
// it is a literal prefix of it. The remaining path is rooted at "/" and
// escaped again, since the gateway delivers it decoded.
//
// The body is passed through verbatim, even if the event marks it as base64
// encoded. Only MultiValueQueryStringParameters contribute to the query.
func EventToOptions(event events.APIGatewayProxyRequest, basePath string) *inject.Options {
	path := event.Path
	if basePath != "" {
		path = strings.TrimPrefix(path, basePath)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	u := &url.URL{Path: path}
	if len(event.MultiValueQueryStringParameters) > 0 {
		u.RawQuery = url.Values(event.MultiValueQueryStringParameters).Encode()
	}

	header := eventHeader(event)

	opts := &inject.Options{
		Method:     event.HTTPMethod,
		URL:        u.RequestURI(),
		Header:     header,
		RemoteAddr: remoteAddr(header),
	}

	// the gateway compresses for us
	header.Del("accept-encoding")

	if event.Body != "" {
		opts.Payload = []byte(event.Body)
	}
	return opts
}

func eventHeader(event events.APIGatewayProxyRequest) inject.Header {
	src := event.MultiValueHeaders
	if src == nil {
		src = make(map[string][]string, len(event.Headers))
		for name, v := range event.Headers {
			src[name] = []string{v}
		}
	}
	return inject.HeaderFrom(src)
}

func remoteAddr(h inject.Header) string {
	vs := h.Values("x-forwarded-for")
	if len(vs) != 1 {
		return ""
	}
	first, _, _ := strings.Cut(vs[0], ",")
	return strings.TrimSpace(first)
}

// ResponseToResult translates an injection response into an API Gateway
// proxy response. Headers are always returned in their multi-valued form.
func ResponseToResult(resp *inject.Response) events.APIGatewayProxyResponse {
	header := resp.Header.Clone()
	header.Del("transfer-encoding")

	mvh := make(map[string][]string, len(header))
	for name, vs := range header {
		mvh[name] = vs
	}

	return events.APIGatewayProxyResponse{
		StatusCode:        resp.StatusCode,
		MultiValueHeaders: mvh,
		Body:              string(resp.Payload),
	}
}
