package raymarch

import (
	"fmt"

	"github.com/san-kum/metaballs/internal/field"
)

// fragmentTemplate is the GPU version of March and Shade. Each fragment
// builds its own camera ray from gl_FragCoord.
const fragmentTemplate = `#version 330

#define MAX_BALLS %d
#define MAX_STEPS %d

uniform vec3 ballPositions[MAX_BALLS];
uniform float ballRadii[MAX_BALLS];
uniform vec3 ballColors[MAX_BALLS];
uniform float numBalls;
uniform float time;

uniform vec3 camPos;
uniform vec3 camForward;
uniform vec3 camRight;
uniform vec3 camUp;
uniform float tanHalfFov;
uniform vec2 resolution;
uniform float threshold;
uniform float maxDistance;
uniform float minStep;
uniform float maxStep;
uniform float reach;

out vec4 finalColor;

float metaballField(vec3 pos) {
    float f = 0.0;
    int n = int(numBalls);
    for (int i = 0; i < MAX_BALLS; i++) {
        if (i >= n) break;
        vec3 d = pos - ballPositions[i];
        float r = ballRadii[i];
        f += (r * r) / (dot(d, d) + %s);
    }
    return f;
}

vec3 blendColor(vec3 pos) {
    vec3 c = vec3(0.0);
    float total = 0.0;
    int n = int(numBalls);
    for (int i = 0; i < MAX_BALLS; i++) {
        if (i >= n) break;
        vec3 d = pos - ballPositions[i];
        float r = ballRadii[i];
        float w = (r * r) / (dot(d, d) + %s);
        c += ballColors[i] * w;
        total += w;
    }
    return total > 0.0 ? c / total : vec3(0.5);
}

vec3 fieldNormal(vec3 pos) {
    float e = %s;
    return normalize(vec3(
        metaballField(pos + vec3(e, 0.0, 0.0)) - metaballField(pos - vec3(e, 0.0, 0.0)),
        metaballField(pos + vec3(0.0, e, 0.0)) - metaballField(pos - vec3(0.0, e, 0.0)),
        metaballField(pos + vec3(0.0, 0.0, e)) - metaballField(pos - vec3(0.0, 0.0, e))
    ));
}

float entry(vec3 ro, vec3 rd) {
    if (reach < 0.0) return 0.0;
    float best = -1.0;
    int n = int(numBalls);
    for (int i = 0; i < MAX_BALLS; i++) {
        if (i >= n) break;
        vec3 o = ro - ballPositions[i];
        float b = dot(o, rd);
        float c = dot(o, o) - reach * reach;
        float t = 0.0;
        if (c > 0.0) {
            float disc = b * b - c;
            if (disc < 0.0) continue;
            t = -b - sqrt(disc);
            if (t < 0.0) continue;
        }
        if (best < 0.0 || t < best) best = t;
    }
    return best;
}

void main() {
    vec2 ndc = 2.0 * gl_FragCoord.xy / resolution - 1.0;
    float aspect = resolution.x / resolution.y;
    vec3 ro = camPos;
    vec3 rd = normalize(camForward + camRight * ndc.x * aspect * tanHalfFov + camUp * ndc.y * tanHalfFov);

    float t = entry(ro, rd);
    if (t < 0.0) discard;

    bool hit = false;
    vec3 hitPos;
    int n = int(numBalls);
    for (int i = 0; i < MAX_STEPS; i++) {
        vec3 pos = ro + rd * t;
        if (metaballField(pos) > threshold) {
            hit = true;
            hitPos = pos;
            break;
        }
        float stepSize = maxStep;
        for (int j = 0; j < MAX_BALLS; j++) {
            if (j >= n) break;
            stepSize = min(stepSize, max(minStep, distance(pos, ballPositions[j]) - ballRadii[j]));
        }
        t += stepSize;
        if (t > maxDistance) break;
    }
    if (!hit) discard;

    vec3 normal = fieldNormal(hitPos);
    vec3 color = blendColor(hitPos);
    vec3 lightDir = normalize(vec3(1.0, 1.0, 1.0));
    float lambert = max(dot(normal, lightDir), 0.0);
    vec3 viewDir = normalize(camPos - hitPos);
    float fresnel = pow(1.0 - max(dot(normal, viewDir), 0.0), 2.0);

    finalColor = vec4(color * (%s + %s * lambert) + vec3(%s) * fresnel, %s);
}
`

// FragmentShader returns the GLSL 330 source of the raymarch kernel.
func FragmentShader(maxSteps int) string {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return fmt.Sprintf(fragmentTemplate,
		field.MaxBalls, maxSteps,
		glslFloat(FieldEpsilon), glslFloat(FieldEpsilon), glslFloat(NormalEpsilon),
		glslFloat(Ambient), glslFloat(Diffuse), glslFloat(FresnelTint), glslFloat(SurfaceAlpha),
	)
}

func glslFloat(v float64) string {
	s := fmt.Sprintf("%g", v)
	for _, c := range s {
		if c == '.' || c == 'e' {
			return s
		}
	}
	return s + ".0"
}

// Uniforms is the per-frame data uploaded to the fragment shader. Vector
// arrays are flattened xyz triples.
type Uniforms struct {
	Positions  []float32
	Radii      []float32
	Colors     []float32
	NumBalls   float32
	Time       float32
	CamPos     [3]float32
	CamForward [3]float32
	CamRight   [3]float32
	CamUp      [3]float32
	TanHalfFOV float32
	Threshold  float32
	MaxDist    float32
	MinStep    float32
	MaxStep    float32
	Reach      float32
}

// NewUniforms packs a snapshot and camera. Unused slots are zeroed so the
// arrays always hold MaxBalls entries.
func NewUniforms(snap *field.Snapshot, cam Camera, set Settings, time float64) (Uniforms, error) {
	if snap == nil {
		return Uniforms{}, ErrNilSnapshot
	}
	f, r, u, err := cam.Basis()
	if err != nil {
		return Uniforms{}, err
	}
	if err := cam.Validate(); err != nil {
		return Uniforms{}, err
	}
	proj, _ := cam.Projector(1, 1)

	un := Uniforms{
		Positions:  make([]float32, field.MaxBalls*3),
		Radii:      make([]float32, field.MaxBalls),
		Colors:     make([]float32, field.MaxBalls*3),
		NumBalls:   float32(snap.Len()),
		Time:       float32(time),
		CamPos:     vec32(cam.Position),
		CamForward: vec32(f),
		CamRight:   vec32(r),
		CamUp:      vec32(u),
		TanHalfFOV: float32(proj.halfH),
		Threshold:  float32(set.Threshold),
		MaxDist:    float32(set.MaxDistance),
		MinStep:    float32(set.MinStep),
		MaxStep:    float32(set.MaxStep),
		Reach:      -1,
	}
	for i := 0; i < snap.Len(); i++ {
		copy(un.Positions[i*3:], vec32Slice(snap.Positions[i]))
		copy(un.Colors[i*3:], vec32Slice(snap.Colors[i]))
		un.Radii[i] = float32(snap.Radii[i])
	}
	if set.SkipEmpty {
		un.Reach = float32(ReachRadius(snap, set.Threshold))
	}
	return un, nil
}

func vec32(v [3]float64) [3]float32 {
	return [3]float32{float32(v[0]), float32(v[1]), float32(v[2])}
}

func vec32Slice(v [3]float64) []float32 {
	a := vec32(v)
	return a[:]
}
