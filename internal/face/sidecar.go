package face

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"omnis/kiosk/internal/types"
)

// ServiceName is the gRPC service exposed by the vision sidecar. Requests and
// responses are google.protobuf.Struct so no generated stubs are needed.
const ServiceName = "omnis.vision.v1.Vision"

const (
	methodOpen   = "/" + ServiceName + "/OpenCamera"
	methodFrame  = "/" + ServiceName + "/Frame"
	methodClose  = "/" + ServiceName + "/CloseCamera"
	methodEncode = "/" + ServiceName + "/Encode"
)

// Camera yields the detections of the next frame.
type Camera interface {
	Frame(ctx context.Context) ([]types.Detection, error)
	Close() error
}

type CameraOpener interface {
	OpenCamera(ctx context.Context, index int) (Camera, error)
}

// Encoder turns a still image into detections; used for bulk enrollment.
type Encoder interface {
	Encode(ctx context.Context, image []byte) ([]types.Detection, error)
}

// Sidecar talks to the python face_recognition process over gRPC.
type Sidecar struct {
	addr string
	conn *grpc.ClientConn
}

func Dial(ctx context.Context, addr string) (*Sidecar, error) {
	conn, err := grpc.DialContext(ctx, addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial vision sidecar %s: %w", addr, err)
	}
	return &Sidecar{addr: addr, conn: conn}, nil
}

// Conn exposes the client connection for health probing.
func (s *Sidecar) Conn() *grpc.ClientConn { return s.conn }

func (s *Sidecar) Close() error { return s.conn.Close() }

func (s *Sidecar) invoke(ctx context.Context, method string, req map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", method, err)
	}
	out := &structpb.Struct{}
	if err := s.conn.Invoke(ctx, method, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Sidecar) OpenCamera(ctx context.Context, index int) (Camera, error) {
	resp, err := s.invoke(ctx, methodOpen, map[string]any{"index": float64(index)})
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", index, err)
	}
	handle := resp.GetFields()["handle"].GetStringValue()
	if handle == "" {
		return nil, fmt.Errorf("open camera %d: sidecar returned no handle", index)
	}
	log.Printf("[vision] camera %d opened handle=%s", index, handle)
	return &sidecarCamera{sc: s, handle: handle}, nil
}

func (s *Sidecar) Encode(ctx context.Context, image []byte) ([]types.Detection, error) {
	resp, err := s.invoke(ctx, methodEncode, map[string]any{"image": base64.StdEncoding.EncodeToString(image)})
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return parseDetections(resp)
}

type sidecarCamera struct {
	sc     *Sidecar
	handle string
}

func (c *sidecarCamera) Frame(ctx context.Context) ([]types.Detection, error) {
	start := time.Now()
	resp, err := c.sc.invoke(ctx, methodFrame, map[string]any{"handle": c.handle})
	if err != nil {
		metricFrameErrors.Inc()
		return nil, err
	}
	metricFrameMS.Observe(float64(time.Since(start).Milliseconds()))
	return parseDetections(resp)
}

func (c *sidecarCamera) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, err := c.sc.invoke(ctx, methodClose, map[string]any{"handle": c.handle})
	if err != nil {
		return fmt.Errorf("close camera %s: %w", c.handle, err)
	}
	log.Printf("[vision] camera released handle=%s", c.handle)
	return nil
}

// parseDetections reads {"faces": [{"box": [top,right,bottom,left], "descriptor": [...], "crop": "<base64 jpeg>"}]}.
func parseDetections(resp *structpb.Struct) ([]types.Detection, error) {
	faces := resp.GetFields()["faces"].GetListValue().GetValues()
	out := make([]types.Detection, 0, len(faces))
	for i, f := range faces {
		fields := f.GetStructValue().GetFields()
		box := fields["box"].GetListValue().GetValues()
		if len(box) != 4 {
			return nil, fmt.Errorf("face %d: box has %d values", i, len(box))
		}
		det := types.Detection{Region: types.Region{
			Top:    int(box[0].GetNumberValue()),
			Right:  int(box[1].GetNumberValue()),
			Bottom: int(box[2].GetNumberValue()),
			Left:   int(box[3].GetNumberValue()),
		}}
		for _, v := range fields["descriptor"].GetListValue().GetValues() {
			det.Descriptor = append(det.Descriptor, v.GetNumberValue())
		}
		if len(det.Descriptor) == 0 {
			return nil, fmt.Errorf("face %d: empty descriptor", i)
		}
		if crop := fields["crop"].GetStringValue(); crop != "" {
			b, err := base64.StdEncoding.DecodeString(crop)
			if err != nil {
				return nil, fmt.Errorf("face %d: crop: %w", i, err)
			}
			det.Crop = b
		}
		out = append(out, det)
	}
	return out, nil
}
