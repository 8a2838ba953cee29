/*
go-crowdcount estimates the number of people in a still image or video stream
using a pretrained crowd density network.  The network outputs a density map
whose spatial sum approximates the person count, the map is then rendered as
a heatmap next to the source frame.

The inference engine is hidden behind the Engine interface so the same
pre/post processing runs on ONNX Runtime (see the onnx package) or on the
Rockchip NPU (see the rknn package, requires the rknn build tag in the
example program).

See the example/crowdcount program for the command line demo.
*/
package crowdcount
